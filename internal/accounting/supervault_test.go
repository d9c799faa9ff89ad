package accounting

import (
	"context"
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

type fakeContractQuerier struct {
	responses map[string]json.RawMessage // keyed by the query's top-level field name
}

func (f fakeContractQuerier) QueryContractState(_ context.Context, _ string, queryMsg []byte) ([]byte, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(queryMsg, &probe); err != nil {
		return nil, err
	}
	for k := range probe {
		if resp, ok := f.responses[k]; ok {
			return resp, nil
		}
	}
	return nil, errNoFixture
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errNoFixture = sentinelErr("no fixture for query")

func TestSupervaultPosition_ValueInDepositToken(t *testing.T) {
	vault := fakeContractQuerier{responses: map[string]json.RawMessage{
		"get_config":                  json.RawMessage(`{"denoms":["uusdc","untrn"],"lp_denom":"factory/vault/share"}`),
		"simulate_withdraw_liquidity": json.RawMessage(`{"asset0":"1000","asset1":"2000"}`),
		"simulate_provide_liquidity":  json.RawMessage(`{"shares":"500"}`),
	}}
	balances := fakeBalanceSource{"settlement:factory/vault/share": sdkmath.NewInt(100)}

	pos := NewSupervaultPosition("supervault-0", vault, "vaultaddr", balances, "settlement", "uusdc")
	value, err := pos.ValueInDepositToken(context.Background())
	require.NoError(t, err)
	// lpShares=100, depositLeg(asset0)=1000, expectedShares=500
	// value = 100*1000/500 = 200
	require.True(t, sdkmath.NewInt(200).Equal(value))
}

func TestSupervaultPosition_ZeroSharesShortCircuits(t *testing.T) {
	vault := fakeContractQuerier{responses: map[string]json.RawMessage{
		"get_config": json.RawMessage(`{"denoms":["uusdc","untrn"],"lp_denom":"factory/vault/share"}`),
	}}
	balances := fakeBalanceSource{"settlement:factory/vault/share": sdkmath.ZeroInt()}

	pos := NewSupervaultPosition("supervault-0", vault, "vaultaddr", balances, "settlement", "uusdc")
	value, err := pos.ValueInDepositToken(context.Background())
	require.NoError(t, err)
	require.True(t, value.IsZero())
}
