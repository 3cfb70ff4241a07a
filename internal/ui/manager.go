// Package ui projects orchestrator state into the widget model the
// storefront renders. It holds no business logic and never talks to the
// wallet or the contract itself; it only reacts to state changes and to
// display data pushed in by the poller.
package ui

import (
	"fmt"
	"sync"

	"squadmint/internal/mint"
)

// ButtonModel drives the single mint control.
type ButtonModel struct {
	Label    string
	Disabled bool
}

// Toast is one notification. Sticky toasts stay until dismissed; the rest
// are replaced on the next state change.
type Toast struct {
	Message string
	Level   string // info | success | error
	Sticky  bool
}

// Model is a complete render snapshot.
type Model struct {
	Button      ButtonModel
	Overlay     bool
	Toasts      []Toast
	PriceWei    string
	TotalSupply int64
	MaxSupply   int64
	SoldOut     bool
}

type Manager struct {
	mu      sync.Mutex
	state   mint.State
	toasts  []Toast
	price   string
	total   int64
	max     int64
	haveMax bool
}

func NewManager() *Manager {
	return &Manager{state: mint.StateIdle}
}

// Apply folds one orchestrator transition into the model. Transient toasts
// from the previous state are dropped; sticky ones survive until Dismiss.
func (m *Manager) Apply(change mint.StateChange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = change.State
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.Sticky {
			kept = append(kept, t)
		}
	}
	m.toasts = kept

	switch change.State {
	case mint.StateSuccess:
		m.toasts = append(m.toasts, Toast{
			Message: fmt.Sprintf("Mint confirmed! Transaction %s", change.TxHash),
			Level:   "success",
		})
	case mint.StateError:
		m.toasts = append(m.toasts, Toast{
			Message: change.Message,
			Level:   "error",
			Sticky:  !change.Transient,
		})
	}
}

// ApplyDisplay updates the price/supply readout. Display reads arrive on
// the poller's schedule, independently of mint activity.
func (m *Manager) ApplyDisplay(priceWei string, totalSupply, maxSupply int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = priceWei
	m.total = totalSupply
	m.max = maxSupply
	m.haveMax = true
}

// Dismiss clears all toasts, sticky included.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// Model returns the current render snapshot.
func (m *Manager) Model() Model {
	m.mu.Lock()
	defer m.mu.Unlock()

	soldOut := m.haveMax && m.total >= m.max

	model := Model{
		Overlay:     m.state == mint.StateConnecting || m.state == mint.StateMinting,
		Toasts:      append([]Toast(nil), m.toasts...),
		PriceWei:    m.price,
		TotalSupply: m.total,
		MaxSupply:   m.max,
		SoldOut:     soldOut,
	}

	switch {
	case soldOut:
		model.Button = ButtonModel{Label: "Sold Out", Disabled: true}
	case m.state == mint.StateIdle:
		model.Button = ButtonModel{Label: "Connect Wallet & Mint"}
	case m.state == mint.StateConnecting:
		model.Button = ButtonModel{Label: "Connecting...", Disabled: true}
	case m.state == mint.StateConnected:
		model.Button = ButtonModel{Label: "Mint Now"}
	case m.state == mint.StateMinting:
		model.Button = ButtonModel{Label: "Minting...", Disabled: true}
	case m.state == mint.StateSuccess:
		model.Button = ButtonModel{Label: "Mint Another"}
	case m.state == mint.StateError:
		model.Button = ButtonModel{Label: "Try Again"}
	}
	return model
}

// Run consumes orchestrator events until ctx is done or the channel
// closes. Callers that drive Apply directly, like tests, skip it.
func (m *Manager) Run(done <-chan struct{}, events <-chan mint.StateChange) {
	for {
		select {
		case <-done:
			return
		case change, ok := <-events:
			if !ok {
				return
			}
			m.Apply(change)
		}
	}
}
