package mint

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"squadmint/internal/contract"
	"squadmint/internal/faults"
	"squadmint/internal/wallet"
)

// State is the UI-visible phase of the mint pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateMinting    State = "minting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// StateChange is broadcast to subscribers on every transition. Message is
// already translated for display; raw provider strings never appear here.
type StateChange struct {
	State     State
	TxHash    string
	Message   string
	Kind      faults.Kind
	Transient bool
}

// Request captures everything about one intended purchase at the moment of
// submission. TotalWei always equals PriceWeiPerUnit * Quantity.
type Request struct {
	Quantity        int64
	Payer           string
	PriceWeiPerUnit *big.Int
	TotalWei        *big.Int
}

// Gateway is the contract surface the orchestrator needs. *contract.Gateway
// satisfies it; tests substitute fakes.
type Gateway interface {
	Price(ctx context.Context) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	MaxSupply(ctx context.Context) (*big.Int, error)
	Mint(ctx context.Context, from string, quantity int64, valueWei *big.Int) (*contract.TxRecord, error)
	WaitMined(ctx context.Context, hash string) (*contract.TxRecord, error)
}

// ErrMintInFlight is returned when a click arrives while a transaction is
// already pending. The duplicate click must never produce a second
// transaction.
var ErrMintInFlight = errors.New("a mint transaction is already in flight")

// Orchestrator drives the two-click mint flow: first click connects the
// wallet, second click submits the transaction. It owns the state machine
// and enforces at most one in-flight transaction per session.
type Orchestrator struct {
	conn           *wallet.Connector
	gateway        Gateway
	maxPerTx       int64
	confirmTimeout time.Duration

	mu             sync.Mutex
	state          State
	inFlight       bool
	cancelInFlight context.CancelFunc
	subs           []chan StateChange
}

// New builds an orchestrator and installs its single invalidation hook on
// the connector, torn down implicitly with the connector itself.
func New(conn *wallet.Connector, gateway Gateway, maxPerTx int64, confirmTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		conn:           conn,
		gateway:        gateway,
		maxPerTx:       maxPerTx,
		confirmTimeout: confirmTimeout,
		state:          StateIdle,
	}
	conn.OnInvalidate(o.handleSessionInvalidated)
	return o
}

// Subscribe returns a channel of state changes. Slow consumers lose events
// rather than blocking the pipeline.
func (o *Orchestrator) Subscribe() <-chan StateChange {
	ch := make(chan StateChange, 32)
	o.mu.Lock()
	o.subs = append(o.subs, ch)
	o.mu.Unlock()
	return ch
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// HandleClick is the single entry point for the mint control. Without a
// session it connects; with one it mints quantity tokens.
func (o *Orchestrator) HandleClick(ctx context.Context, quantity int64) error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return ErrMintInFlight
	}
	if o.state == StateConnecting {
		o.mu.Unlock()
		return nil
	}
	sess := o.conn.Session()
	if !sess.Connected {
		o.setStateLocked(StateConnecting)
		o.mu.Unlock()
		return o.connect(ctx)
	}
	o.inFlight = true
	mintCtx, cancel := context.WithCancel(ctx)
	o.cancelInFlight = cancel
	o.setStateLocked(StateMinting)
	o.mu.Unlock()

	err := o.mint(mintCtx, sess.Address, quantity)

	o.mu.Lock()
	o.inFlight = false
	o.cancelInFlight = nil
	o.mu.Unlock()
	cancel()
	return err
}

// Ack moves the terminal success/error states back to connected (or idle
// when the session is gone) once the user has seen the outcome.
func (o *Orchestrator) Ack() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateSuccess && o.state != StateError {
		return
	}
	if o.conn.Session().Connected {
		o.setStateLocked(StateConnected)
	} else {
		o.setStateLocked(StateIdle)
	}
}

func (o *Orchestrator) connect(ctx context.Context) error {
	_, err := o.conn.Connect(ctx)
	if err != nil {
		o.failWith(err)
		return err
	}
	o.mu.Lock()
	o.setStateLocked(StateConnected)
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) mint(ctx context.Context, payer string, quantity int64) error {
	if quantity < 1 || quantity > o.maxPerTx {
		err := faults.Newf(faults.KindValidation, "quantity must be between 1 and %d", o.maxPerTx)
		o.failWith(err)
		return err
	}

	req, err := o.buildRequest(ctx, payer, quantity)
	if err != nil {
		o.failWith(err)
		return err
	}

	rec, err := o.gateway.Mint(ctx, req.Payer, req.Quantity, req.TotalWei)
	if err != nil {
		o.failWith(err)
		return err
	}
	log.Info().Str("tx", rec.Hash).Int64("quantity", req.Quantity).Msg("mint submitted")

	waitCtx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()
	mined, err := o.gateway.WaitMined(waitCtx, rec.Hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = faults.Newf(faults.KindUpstream, "transaction %s not confirmed within %s", rec.Hash, o.confirmTimeout)
		}
		o.failWith(err)
		return err
	}
	if mined.Status != contract.TxConfirmed {
		err := faults.Revert("", errors.New("transaction reverted on chain"))
		o.failWith(err)
		return err
	}

	// Re-read supply so the UI never renders stale remaining counts.
	if _, err := o.gateway.TotalSupply(ctx); err != nil {
		log.Warn().Err(err).Msg("post-mint supply refresh failed")
	}

	o.mu.Lock()
	o.state = StateSuccess
	o.broadcastLocked(StateChange{State: StateSuccess, TxHash: mined.Hash})
	o.mu.Unlock()
	return nil
}

// buildRequest reads the price just-in-time and derives the total. The price
// on page load is display data only; the submitted value always comes from a
// fresh read.
func (o *Orchestrator) buildRequest(ctx context.Context, payer string, quantity int64) (Request, error) {
	price, err := o.gateway.Price(ctx)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Quantity:        quantity,
		Payer:           payer,
		PriceWeiPerUnit: price,
		TotalWei:        new(big.Int).Mul(price, big.NewInt(quantity)),
	}, nil
}

func (o *Orchestrator) failWith(err error) {
	classified := faults.Classify(err)
	kind := faults.KindOf(classified)

	o.mu.Lock()
	o.state = StateError
	o.broadcastLocked(StateChange{
		State:     StateError,
		Message:   faults.UserMessage(kind),
		Kind:      kind,
		Transient: faults.Transient(kind),
	})
	o.mu.Unlock()

	log.Warn().Err(err).Str("kind", kind.String()).Msg("mint pipeline error")
}

func (o *Orchestrator) handleSessionInvalidated(reason string) {
	o.mu.Lock()
	cancel := o.cancelInFlight
	if o.conn.Session().Connected {
		o.setStateLocked(StateConnected)
	} else {
		o.setStateLocked(StateIdle)
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	log.Info().Str("reason", reason).Msg("wallet session invalidated")
}

// setStateLocked transitions and broadcasts; o.mu must be held.
func (o *Orchestrator) setStateLocked(s State) {
	o.state = s
	o.broadcastLocked(StateChange{State: s})
}

func (o *Orchestrator) broadcastLocked(ev StateChange) {
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
