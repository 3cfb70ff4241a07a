package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	intentID := "pi_pg_" + time.Now().Format("20060102150405.000000000")

	claimed, err := store.Claim(ctx, Entry{IntentID: intentID, WalletAddress: "0xabc", Quantity: 2, AmountCents: 10000})
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Claim(ctx, Entry{IntentID: intentID, WalletAddress: "0xabc", Quantity: 2, AmountCents: 10000})
	require.NoError(t, err)
	assert.False(t, claimed, "ON CONFLICT must reject the duplicate claim")

	require.NoError(t, store.MarkMinted(ctx, intentID, "0xfeedface"))

	got, err := store.Get(ctx, intentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusMinted, got.Status)
	assert.Equal(t, "0xfeedface", got.TxHash)
}
