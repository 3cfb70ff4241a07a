package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyProviderErrors(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{"MetaMask Tx Signature: User denied transaction signature.", KindUserRejected},
		{"user rejected the request (code 4001)", KindUserRejected},
		{"insufficient funds for gas * price + value", KindInsufficientFunds},
		{"execution reverted: MaxSupplyExceeded", KindContractRevert},
		{"wrong network: expected chain 1", KindWrongNetwork},
		{"connection refused", KindUpstream},
	}
	for _, tc := range cases {
		got := Classify(errors.New(tc.raw))
		assert.Equal(t, tc.want, KindOf(got), "raw=%q", tc.raw)
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := New(KindValidation, errors.New("quantity out of range"))
	got := Classify(fmt.Errorf("create intent: %w", orig))
	assert.Equal(t, KindValidation, KindOf(got))
}

func TestRevertReasonExtraction(t *testing.T) {
	err := Classify(errors.New("execution reverted: PublicSaleNotActive"))
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "PublicSaleNotActive", fe.Reason)

	err = Classify(errors.New("execution reverted"))
	require.ErrorAs(t, err, &fe)
	assert.Empty(t, fe.Reason)
}

func TestUserMessageNeverExposesRawError(t *testing.T) {
	raw := errors.New("rpc error: code = Unavailable desc = secret node address")
	err := Classify(raw)
	msg := UserMessage(KindOf(err))
	assert.NotContains(t, msg, "secret node address")
	assert.NotEmpty(t, msg)
}

func TestTransient(t *testing.T) {
	assert.False(t, Transient(KindNoProvider))
	assert.True(t, Transient(KindUserRejected))
	assert.True(t, Transient(KindWrongNetwork))
}
