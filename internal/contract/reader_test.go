package contract

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseABI(t *testing.T, raw string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(raw))
	require.NoError(t, err)
	return parsed
}

func TestResolvePriceMethodCanonical(t *testing.T) {
	method, err := resolvePriceMethod(mustParseABI(t, NFTABI))
	require.NoError(t, err)
	assert.Equal(t, "PRICE", method)
}

func TestResolvePriceMethodLegacyNames(t *testing.T) {
	cases := []struct {
		name string
		abi  string
		want string
	}{
		{
			name: "mintPrice",
			abi:  `[{"type":"function","name":"mintPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`,
			want: "mintPrice",
		},
		{
			name: "cost",
			abi:  `[{"type":"function","name":"cost","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`,
			want: "cost",
		},
		{
			name: "lowercase price",
			abi:  `[{"type":"function","name":"price","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`,
			want: "price",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, err := resolvePriceMethod(mustParseABI(t, tc.abi))
			require.NoError(t, err)
			assert.Equal(t, tc.want, method)
		})
	}
}

func TestResolvePriceMethodPrefersCanonicalOrder(t *testing.T) {
	// Both PRICE and cost present: PRICE wins.
	raw := `[
	  {"type":"function","name":"cost","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	  {"type":"function","name":"PRICE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
	]`
	method, err := resolvePriceMethod(mustParseABI(t, raw))
	require.NoError(t, err)
	assert.Equal(t, "PRICE", method)
}

func TestResolvePriceMethodRejectsWrongShape(t *testing.T) {
	// A price method taking arguments is not a unit-price accessor.
	raw := `[{"type":"function","name":"price","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}]`
	_, err := resolvePriceMethod(mustParseABI(t, raw))
	assert.Error(t, err)
}

func TestResolvePriceMethodMissing(t *testing.T) {
	raw := `[{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`
	_, err := resolvePriceMethod(mustParseABI(t, raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price accessor")
}
