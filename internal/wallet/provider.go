package wallet

import (
	"context"
	"math/big"
)

// TxParams mirrors the eth_sendTransaction parameter object: the provider
// signs with the key it holds for From, the page never sees the key.
type TxParams struct {
	From  string
	To    string
	Value *big.Int
	Data  []byte
}

// Callbacks receive provider-initiated notifications. A nil field means the
// subscriber does not care about that event.
type Callbacks struct {
	AccountsChanged func(accounts []string)
	ChainChanged    func(chainID int64)
}

// Provider abstracts an injected browser wallet (the EIP-1193 surface this
// pipeline actually uses). Implementations are expected to have arbitrary
// latency on every call: prompts wait for a human.
type Provider interface {
	// RequestAccounts prompts for account access and returns the granted
	// accounts, first entry active.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)

	ChainID(ctx context.Context) (int64, error)

	// SwitchChain asks the wallet to move to the given chain. The user can
	// decline.
	SwitchChain(ctx context.Context, chainID int64) error

	// SendTransaction submits a transaction signed by the wallet and returns
	// its hash.
	SendTransaction(ctx context.Context, tx TxParams) (string, error)

	// Subscribe registers event callbacks and returns an unsubscribe func.
	Subscribe(cb Callbacks) (unsubscribe func())
}
