package contract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// FakeMinter deterministically fabricates transaction hashes so tests and
// local harnesses can run without a chain.
type FakeMinter struct {
	// Err, when set, is returned from every CreditCardMint call.
	Err error

	mu    sync.Mutex
	calls []FakeMintCall
}

type FakeMintCall struct {
	To       string
	Quantity int64
}

func (f *FakeMinter) CreditCardMint(_ context.Context, to string, quantity int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.calls = append(f.calls, FakeMintCall{To: to, Quantity: quantity})
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", to, quantity, len(f.calls))))
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// Calls returns every mint executed through the fake.
func (f *FakeMinter) Calls() []FakeMintCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeMintCall(nil), f.calls...)
}
