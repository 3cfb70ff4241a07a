package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreClaimOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry := Entry{IntentID: "pi_123", WalletAddress: "0xabc", Quantity: 2, AmountCents: 10000}

	claimed, err := store.Claim(ctx, entry)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Duplicate delivery of the same intent id must not claim again.
	claimed, err = store.Claim(ctx, entry)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := store.Get(ctx, "pi_123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusClaimed, got.Status)
}

func TestMemoryStoreConcurrentClaims(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Claim(ctx, Entry{IntentID: "pi_race", WalletAddress: "0xabc", Quantity: 1})
			require.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one delivery may claim an intent")
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Claim(ctx, Entry{IntentID: "pi_ok", WalletAddress: "0xabc", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, store.MarkMinted(ctx, "pi_ok", "0xdeadbeef"))

	_, err = store.Claim(ctx, Entry{IntentID: "pi_bad", WalletAddress: "0xdef", Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, "pi_bad", "execution reverted"))

	got, err := store.Get(ctx, "pi_ok")
	require.NoError(t, err)
	assert.Equal(t, StatusMinted, got.Status)
	assert.Equal(t, "0xdeadbeef", got.TxHash)

	failures, err := store.Failures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "pi_bad", failures[0].IntentID)
	assert.Equal(t, "execution reverted", failures[0].FailureReason)
}

func TestMemoryStoreUnknownIntent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.Error(t, store.MarkMinted(ctx, "missing", "0x1"))

	got, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minted.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, Entry{IntentID: "pi_file", WalletAddress: "0xabc", Quantity: 1, AmountCents: 5000})
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.MarkFailed(ctx, "pi_file", "rpc unavailable"))

	_, err = os.Stat(path)
	require.NoError(t, err, "expected ledger file on disk")

	// A process restart must still see the claim: idempotency has to
	// survive the webhook being redelivered after a crash.
	store2, err := NewFileStore(path)
	require.NoError(t, err)

	claimed, err = store2.Claim(ctx, Entry{IntentID: "pi_file"})
	require.NoError(t, err)
	assert.False(t, claimed)

	failures, err := store2.Failures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "rpc unavailable", failures[0].FailureReason)
}
