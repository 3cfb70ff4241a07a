package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status of one payment intent's on-chain delivery.
type Status string

const (
	// StatusClaimed means the intent id has been reserved for minting but
	// the chain call has not resolved yet.
	StatusClaimed Status = "claimed"
	// StatusMinted means the on-chain mint transaction was submitted.
	StatusMinted Status = "minted"
	// StatusFailed means payment succeeded but the mint did not: money
	// collected, NFT not delivered. These rows are the manual
	// reconciliation queue and are never retried automatically.
	StatusFailed Status = "failed"
)

// Entry is the durable record keyed by payment intent id. Exactly one mint
// may ever happen per intent id, however many times the webhook is
// redelivered.
type Entry struct {
	IntentID      string    `json:"intentId"`
	WalletAddress string    `json:"walletAddress"`
	Quantity      int64     `json:"quantity"`
	AmountCents   int64     `json:"amountCents"`
	TxHash        string    `json:"txHash,omitempty"`
	Status        Status    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store persists minted-intent records. Claim is the idempotency boundary:
// it must be atomic under concurrent webhook deliveries.
type Store interface {
	// Claim records the intent as claimed and returns true, or returns
	// false when the intent id already exists (duplicate delivery).
	Claim(ctx context.Context, entry Entry) (bool, error)
	MarkMinted(ctx context.Context, intentID, txHash string) error
	MarkFailed(ctx context.Context, intentID, reason string) error
	Get(ctx context.Context, intentID string) (*Entry, error)
	// Failures lists entries awaiting manual reconciliation.
	Failures(ctx context.Context) ([]Entry, error)
}

// MemoryStore is mostly for testing.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Entry)}
}

func (m *MemoryStore) Claim(_ context.Context, entry Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[entry.IntentID]; exists {
		return false, nil
	}
	now := time.Now().UTC()
	entry.Status = StatusClaimed
	entry.CreatedAt = now
	entry.UpdatedAt = now
	m.data[entry.IntentID] = entry
	return true, nil
}

func (m *MemoryStore) MarkMinted(_ context.Context, intentID, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(intentID, func(e *Entry) {
		e.Status = StatusMinted
		e.TxHash = txHash
	})
}

func (m *MemoryStore) MarkFailed(_ context.Context, intentID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(intentID, func(e *Entry) {
		e.Status = StatusFailed
		e.FailureReason = reason
	})
}

func (m *MemoryStore) Get(_ context.Context, intentID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[intentID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) Failures(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.data {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out, nil
}

var errUnknownIntent = errors.New("unknown intent id")

func (m *MemoryStore) update(intentID string, fn func(*Entry)) error {
	e, ok := m.data[intentID]
	if !ok {
		return errUnknownIntent
	}
	fn(&e)
	e.UpdatedAt = time.Now().UTC()
	m.data[intentID] = e
	return nil
}

// FileStore persists entries to disk. Suitable for local dev; production
// uses the Postgres store.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]Entry
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]Entry)}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() error {
	blob, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(blob) == 0 {
		return nil
	}
	return json.Unmarshal(blob, &f.data)
}

func (f *FileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, blob, 0o600)
}

func (f *FileStore) Claim(_ context.Context, entry Entry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[entry.IntentID]; exists {
		return false, nil
	}
	now := time.Now().UTC()
	entry.Status = StatusClaimed
	entry.CreatedAt = now
	entry.UpdatedAt = now
	f.data[entry.IntentID] = entry
	return true, f.persist()
}

func (f *FileStore) MarkMinted(_ context.Context, intentID, txHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[intentID]
	if !ok {
		return errUnknownIntent
	}
	e.Status = StatusMinted
	e.TxHash = txHash
	e.UpdatedAt = time.Now().UTC()
	f.data[intentID] = e
	return f.persist()
}

func (f *FileStore) MarkFailed(_ context.Context, intentID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[intentID]
	if !ok {
		return errUnknownIntent
	}
	e.Status = StatusFailed
	e.FailureReason = reason
	e.UpdatedAt = time.Now().UTC()
	f.data[intentID] = e
	return f.persist()
}

func (f *FileStore) Get(_ context.Context, intentID string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[intentID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *FileStore) Failures(_ context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Entry
	for _, e := range f.data {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out, nil
}
