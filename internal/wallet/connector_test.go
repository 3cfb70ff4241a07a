package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadmint/internal/faults"
)

const testAccount = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func TestConnectEstablishesSession(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 1}
	conn := NewConnector(provider, 1)

	sess, err := conn.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Connected)
	assert.Equal(t, int64(1), sess.ChainID)
	assert.Equal(t, "0xab5801a7d398351b8be11c439e05c5b3259aec9b", sess.Address)
}

func TestConnectWithoutProvider(t *testing.T) {
	conn := NewConnector(nil, 1)
	_, err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindNoProvider, faults.KindOf(err))
}

func TestConnectRejectedByUser(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 1, RejectConnect: true}
	conn := NewConnector(provider, 1)
	_, err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindUserRejected, faults.KindOf(err))
	assert.False(t, conn.Session().Connected)
}

func TestConnectPromptsNetworkSwitch(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 11155111}
	conn := NewConnector(provider, 1)

	sess, err := conn.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.ChainID)
	assert.Equal(t, int64(1), provider.Chain, "switch request should reach the provider")
}

func TestConnectWrongNetworkWhenSwitchDeclined(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 11155111, RejectSwitch: true}
	conn := NewConnector(provider, 1)

	_, err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindWrongNetwork, faults.KindOf(err))
}

func TestAccountChangeInvalidatesSession(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 1}
	conn := NewConnector(provider, 1)

	var invalidated []string
	conn.OnInvalidate(func(reason string) { invalidated = append(invalidated, reason) })

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)

	provider.EmitAccountsChanged([]string{"0x00000000000000000000000000000000deadbeef"})
	require.Len(t, invalidated, 1)
	assert.Equal(t, "account changed", invalidated[0])
	assert.Equal(t, "0x00000000000000000000000000000000deadbeef", conn.Session().Address)

	provider.EmitAccountsChanged(nil)
	require.Len(t, invalidated, 2)
	assert.False(t, conn.Session().Connected)
}

func TestChainChangeInvalidatesSession(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 1}
	conn := NewConnector(provider, 1)

	var reasons []string
	conn.OnInvalidate(func(reason string) { reasons = append(reasons, reason) })

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)

	provider.EmitChainChanged(11155111)
	require.Len(t, reasons, 1)
	assert.Equal(t, "chain changed", reasons[0])
}

func TestDisconnectTearsDownSubscription(t *testing.T) {
	provider := &FakeProvider{AccountsList: []string{testAccount}, Chain: 1}
	conn := NewConnector(provider, 1)

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.SubscriberCount())

	conn.Disconnect()
	assert.Equal(t, 0, provider.SubscriberCount(), "reconnect cycles must not leak listeners")
	assert.False(t, conn.Session().Connected)

	// Reconnect installs exactly one fresh subscription.
	_, err = conn.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.SubscriberCount())
}
