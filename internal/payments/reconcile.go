package payments

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Reconciler records partial failures (payment collected, NFT not
// delivered) as one JSON file per intent so operators can resolve them by
// hand. It never retries.
type Reconciler struct {
	dir string
}

// NewReconciler returns a sink writing under dir; an empty dir disables
// writing (entries are still logged).
func NewReconciler(dir string) *Reconciler {
	return &Reconciler{dir: dir}
}

type reconciliationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`
	Error     string    `json:"error"`
}

// Record writes one reconciliation entry for ev.
func (r *Reconciler) Record(ev Event, cause error) {
	if r == nil || r.dir == "" {
		return
	}

	entry := reconciliationEntry{
		Timestamp: time.Now().UTC(),
		Event:     ev,
		Error:     cause.Error(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("reconciliation marshal error")
		return
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		log.Error().Err(err).Msg("reconciliation mkdir error")
		return
	}

	filename := fmt.Sprintf("%d-%s.json", time.Now().UnixNano(), ev.IntentID)
	if err := os.WriteFile(filepath.Join(r.dir, filename), data, 0o600); err != nil {
		log.Error().Err(err).Msg("reconciliation write error")
	}
}

// Depth counts recorded entries awaiting manual resolution.
func (r *Reconciler) Depth() int {
	if r == nil || r.dir == "" {
		return 0
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0
	}
	return len(entries)
}
