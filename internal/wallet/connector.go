package wallet

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"squadmint/internal/faults"
)

// Session is the normalized view of a connected wallet. It is owned by the
// Connector; callers get copies.
type Session struct {
	Address   string
	ChainID   int64
	Connected bool
}

// Connector wraps an injected wallet provider and tracks the active session.
// It is an explicit, injectable object rather than a process-wide global so
// concurrent harnesses do not interfere.
type Connector struct {
	provider      Provider
	requiredChain int64

	mu          sync.Mutex
	session     Session
	unsubscribe func()

	// onInvalidate fires when an account or chain change voids the current
	// session. The orchestrator holds the single registration and uses it to
	// cancel in-flight mint requests.
	onInvalidate func(reason string)
}

// NewConnector builds a connector for the given provider, which may be nil
// when no wallet extension is present.
func NewConnector(provider Provider, requiredChain int64) *Connector {
	return &Connector{provider: provider, requiredChain: requiredChain}
}

// OnInvalidate registers the session-invalidation hook. Only one registration
// is kept; registering replaces the previous hook.
func (c *Connector) OnInvalidate(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidate = fn
}

// Session returns a copy of the current session.
func (c *Connector) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Connect requests account access, enforces the required chain (prompting a
// network switch rather than silently failing), and installs the provider
// event subscription.
func (c *Connector) Connect(ctx context.Context) (Session, error) {
	if c.provider == nil {
		return Session{}, faults.Newf(faults.KindNoProvider, "no wallet extension detected")
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return Session{}, faults.Classify(err)
	}
	if len(accounts) == 0 {
		return Session{}, faults.Newf(faults.KindUserRejected, "wallet returned no accounts")
	}

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return Session{}, faults.Classify(err)
	}
	if chainID != c.requiredChain {
		log.Debug().Int64("have", chainID).Int64("want", c.requiredChain).Msg("prompting network switch")
		if err := c.provider.SwitchChain(ctx, c.requiredChain); err != nil {
			return Session{}, faults.New(faults.KindWrongNetwork, err)
		}
		chainID = c.requiredChain
	}

	c.mu.Lock()
	c.session = Session{
		Address:   strings.ToLower(accounts[0]),
		ChainID:   chainID,
		Connected: true,
	}
	if c.unsubscribe == nil {
		c.unsubscribe = c.provider.Subscribe(Callbacks{
			AccountsChanged: c.handleAccountsChanged,
			ChainChanged:    c.handleChainChanged,
		})
	}
	sess := c.session
	c.mu.Unlock()

	log.Info().Str("address", sess.Address).Int64("chain_id", sess.ChainID).Msg("wallet connected")
	return sess, nil
}

// Disconnect clears local session state and tears down the event
// subscription. Wallet-initiated grants are not revocable from the page, so
// no provider RPC is made.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.session = Session{}
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (c *Connector) handleAccountsChanged(accounts []string) {
	c.mu.Lock()
	prev := c.session
	if len(accounts) == 0 {
		c.session = Session{}
	} else {
		c.session = Session{
			Address:   strings.ToLower(accounts[0]),
			ChainID:   prev.ChainID,
			Connected: true,
		}
	}
	changed := prev.Connected && (len(accounts) == 0 || !strings.EqualFold(prev.Address, accounts[0]))
	hook := c.onInvalidate
	c.mu.Unlock()

	if changed && hook != nil {
		hook("account changed")
	}
}

func (c *Connector) handleChainChanged(chainID int64) {
	c.mu.Lock()
	c.session.ChainID = chainID
	onWrongChain := c.session.Connected && chainID != c.requiredChain
	hook := c.onInvalidate
	c.mu.Unlock()

	if onWrongChain && hook != nil {
		hook("chain changed")
	}
}
