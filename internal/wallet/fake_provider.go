package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
)

// FakeProvider is an in-memory wallet used by tests and local harnesses. It
// deterministically fabricates transaction hashes from the submitted params.
type FakeProvider struct {
	mu sync.Mutex

	AccountsList []string
	Chain        int64

	// RejectConnect makes RequestAccounts behave like a declined prompt.
	RejectConnect bool
	// RejectSwitch makes SwitchChain behave like a declined prompt.
	RejectSwitch bool
	// SendErr, when set, is returned from SendTransaction.
	SendErr error

	sentTxs []TxParams
	subs    map[int]Callbacks
	nextSub int
}

var errFakeRejected = errors.New("user rejected the request (code 4001)")

func (f *FakeProvider) RequestAccounts(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RejectConnect {
		return nil, errFakeRejected
	}
	return append([]string(nil), f.AccountsList...), nil
}

func (f *FakeProvider) Accounts(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.AccountsList...), nil
}

func (f *FakeProvider) ChainID(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Chain, nil
}

func (f *FakeProvider) SwitchChain(_ context.Context, chainID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RejectSwitch {
		return errFakeRejected
	}
	f.Chain = chainID
	return nil
}

func (f *FakeProvider) SendTransaction(_ context.Context, tx TxParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	sum := sha256.Sum256(append([]byte(tx.From+tx.To+tx.Value.String()), tx.Data...))
	return "0x" + hex.EncodeToString(sum[:]), nil
}

func (f *FakeProvider) Subscribe(cb Callbacks) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]Callbacks)
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = cb
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// EmitAccountsChanged simulates the wallet switching accounts.
func (f *FakeProvider) EmitAccountsChanged(accounts []string) {
	f.mu.Lock()
	f.AccountsList = accounts
	cbs := f.snapshotSubs()
	f.mu.Unlock()
	for _, cb := range cbs {
		if cb.AccountsChanged != nil {
			cb.AccountsChanged(accounts)
		}
	}
}

// EmitChainChanged simulates the wallet moving to another chain.
func (f *FakeProvider) EmitChainChanged(chainID int64) {
	f.mu.Lock()
	f.Chain = chainID
	cbs := f.snapshotSubs()
	f.mu.Unlock()
	for _, cb := range cbs {
		if cb.ChainChanged != nil {
			cb.ChainChanged(chainID)
		}
	}
}

// SentTransactions returns every transaction submitted through the provider.
func (f *FakeProvider) SentTransactions() []TxParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TxParams(nil), f.sentTxs...)
}

// SubscriberCount reports active subscriptions, for leak assertions.
func (f *FakeProvider) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *FakeProvider) snapshotSubs() []Callbacks {
	out := make([]Callbacks, 0, len(f.subs))
	for _, cb := range f.subs {
		out = append(out, cb)
	}
	return out
}
