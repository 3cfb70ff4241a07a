package mint

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadmint/internal/contract"
	"squadmint/internal/faults"
	"squadmint/internal/wallet"
)

const payer = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

type mintCall struct {
	from     string
	quantity int64
	value    *big.Int
}

type fakeGateway struct {
	mu          sync.Mutex
	price       *big.Int
	total       *big.Int
	max         *big.Int
	mintErr     error
	mintStarted chan struct{} // closed when Mint is entered, if set
	mintRelease chan struct{} // Mint blocks until closed, if set
	waitBlocks  bool          // WaitMined blocks until ctx is done
	calls       []mintCall
	supplyReads int
}

func (g *fakeGateway) Price(context.Context) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.price), nil
}

func (g *fakeGateway) TotalSupply(context.Context) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.supplyReads++
	return new(big.Int).Set(g.total), nil
}

func (g *fakeGateway) MaxSupply(context.Context) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.max), nil
}

func (g *fakeGateway) Mint(ctx context.Context, from string, quantity int64, valueWei *big.Int) (*contract.TxRecord, error) {
	g.mu.Lock()
	if g.mintErr != nil {
		err := g.mintErr
		g.mu.Unlock()
		return nil, err
	}
	g.calls = append(g.calls, mintCall{from: from, quantity: quantity, value: new(big.Int).Set(valueWei)})
	started := g.mintStarted
	release := g.mintRelease
	g.mu.Unlock()

	if started != nil {
		close(started)
		g.mu.Lock()
		g.mintStarted = nil
		g.mu.Unlock()
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &contract.TxRecord{Hash: "0xfeed", Status: contract.TxPending}, nil
}

func (g *fakeGateway) WaitMined(ctx context.Context, hash string) (*contract.TxRecord, error) {
	if g.waitBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &contract.TxRecord{Hash: hash, Status: contract.TxConfirmed, BlockNumber: 123}, nil
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		price: big.NewInt(10_000_000_000_000_000), // 0.01 ETH
		total: big.NewInt(100),
		max:   big.NewInt(10_000),
	}
}

func newTestOrchestrator(gw Gateway) (*Orchestrator, *wallet.FakeProvider) {
	provider := &wallet.FakeProvider{AccountsList: []string{payer}, Chain: 1}
	conn := wallet.NewConnector(provider, 1)
	return New(conn, gw, 10, time.Second), provider
}

func drain(ch <-chan StateChange) []StateChange {
	var out []StateChange
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func states(evs []StateChange) []State {
	out := make([]State, len(evs))
	for i, ev := range evs {
		out[i] = ev.State
	}
	return out
}

func TestTwoClickFlow(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)
	events := o.Subscribe()

	// First click: connect only.
	require.NoError(t, o.HandleClick(context.Background(), 1))
	assert.Equal(t, []State{StateConnecting, StateConnected}, states(drain(events)))
	assert.Empty(t, gw.calls, "first click must not mint")

	// Second click: mint.
	require.NoError(t, o.HandleClick(context.Background(), 1))
	evs := drain(events)
	require.Equal(t, []State{StateMinting, StateSuccess}, states(evs))
	assert.Equal(t, "0xfeed", evs[1].TxHash, "success must surface the transaction hash")
	require.Len(t, gw.calls, 1)
}

func TestConnectRejectedNeverReachesConnected(t *testing.T) {
	gw := newFakeGateway()
	o, provider := newTestOrchestrator(gw)
	provider.RejectConnect = true
	events := o.Subscribe()

	err := o.HandleClick(context.Background(), 1)
	require.Error(t, err)

	evs := drain(events)
	assert.Equal(t, []State{StateConnecting, StateError}, states(evs))
	assert.Equal(t, faults.KindUserRejected, evs[1].Kind)
	assert.Equal(t, StateError, o.State())
}

func TestTotalWeiUsesFreshPrice(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)

	require.NoError(t, o.HandleClick(context.Background(), 3))

	// Price doubles between page load and click.
	gw.mu.Lock()
	gw.price = big.NewInt(20_000_000_000_000_000)
	gw.mu.Unlock()

	require.NoError(t, o.HandleClick(context.Background(), 3))
	require.Len(t, gw.calls, 1)
	want := new(big.Int).Mul(big.NewInt(20_000_000_000_000_000), big.NewInt(3))
	assert.Zero(t, want.Cmp(gw.calls[0].value), "total must be recomputed from the fresh price")
}

func TestTotalWeiScenarioTwoUnits(t *testing.T) {
	// quantity=2 at 0.01 ETH/unit is exactly 0.02 ETH in wei.
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)

	require.NoError(t, o.HandleClick(context.Background(), 2))
	require.NoError(t, o.HandleClick(context.Background(), 2))

	require.Len(t, gw.calls, 1)
	assert.Equal(t, "20000000000000000", gw.calls[0].value.String())
}

func TestDoubleClickSubmitsExactlyOneTransaction(t *testing.T) {
	gw := newFakeGateway()
	gw.mintStarted = make(chan struct{})
	gw.mintRelease = make(chan struct{})
	o, _ := newTestOrchestrator(gw)

	require.NoError(t, o.HandleClick(context.Background(), 1)) // connect

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.HandleClick(context.Background(), 1) }()

	<-gw.mintStarted // first submission is in flight

	err := o.HandleClick(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMintInFlight)

	close(gw.mintRelease)
	require.NoError(t, <-firstDone)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Len(t, gw.calls, 1, "rapid double click must submit exactly one transaction")
}

func TestQuantityOutOfRange(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)
	require.NoError(t, o.HandleClick(context.Background(), 1))
	events := o.Subscribe()

	for _, q := range []int64{0, 11} {
		err := o.HandleClick(context.Background(), q)
		require.Error(t, err, "quantity %d", q)
		assert.Equal(t, faults.KindValidation, faults.KindOf(err))
		o.Ack()
	}
	assert.Empty(t, gw.calls)

	evs := drain(events)
	for _, ev := range evs {
		if ev.State == StateError {
			assert.Equal(t, faults.UserMessage(faults.KindValidation), ev.Message)
		}
	}
}

func TestErrorMessagesAreTranslated(t *testing.T) {
	gw := newFakeGateway()
	gw.mintErr = errors.New("execution reverted: PublicSaleNotActive")
	o, _ := newTestOrchestrator(gw)
	require.NoError(t, o.HandleClick(context.Background(), 1))
	events := o.Subscribe()

	err := o.HandleClick(context.Background(), 1)
	require.Error(t, err)

	evs := drain(events)
	require.Equal(t, []State{StateMinting, StateError}, states(evs))
	assert.Equal(t, faults.KindContractRevert, evs[1].Kind)
	assert.Equal(t, faults.UserMessage(faults.KindContractRevert), evs[1].Message)
	assert.NotContains(t, evs[1].Message, "execution reverted")
}

func TestAckReturnsToConnected(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)
	require.NoError(t, o.HandleClick(context.Background(), 1))
	require.NoError(t, o.HandleClick(context.Background(), 1))
	require.Equal(t, StateSuccess, o.State())

	o.Ack()
	assert.Equal(t, StateConnected, o.State())
}

func TestConfirmationTimeout(t *testing.T) {
	gw := newFakeGateway()
	gw.waitBlocks = true
	o, provider := newTestOrchestrator(gw)
	_ = provider
	o.confirmTimeout = 20 * time.Millisecond
	require.NoError(t, o.HandleClick(context.Background(), 1))
	events := o.Subscribe()

	err := o.HandleClick(context.Background(), 1)
	require.Error(t, err)

	evs := drain(events)
	require.Equal(t, []State{StateMinting, StateError}, states(evs))
	assert.True(t, evs[1].Transient, "a stalled confirmation must allow retry")
}

func TestSupplyRefreshedAfterMint(t *testing.T) {
	gw := newFakeGateway()
	o, _ := newTestOrchestrator(gw)
	require.NoError(t, o.HandleClick(context.Background(), 1))
	before := gw.supplyReads
	require.NoError(t, o.HandleClick(context.Background(), 1))
	assert.Greater(t, gw.supplyReads, before, "every mint must re-fetch supply")
}

func TestAccountChangeCancelsInFlightMint(t *testing.T) {
	gw := newFakeGateway()
	gw.mintStarted = make(chan struct{})
	gw.mintRelease = make(chan struct{}) // never closed: only cancellation can finish the mint
	o, provider := newTestOrchestrator(gw)

	require.NoError(t, o.HandleClick(context.Background(), 1))

	done := make(chan error, 1)
	go func() { done <- o.HandleClick(context.Background(), 1) }()
	<-gw.mintStarted

	provider.EmitAccountsChanged([]string{"0x00000000000000000000000000000000deadbeef"})

	select {
	case err := <-done:
		require.Error(t, err, "in-flight mint must be invalidated by an account switch")
	case <-time.After(2 * time.Second):
		t.Fatal("mint was not cancelled after account change")
	}
}
