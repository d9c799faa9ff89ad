package accounting

import (
	"context"
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestMarsPosition_SumsMatchingDenomLends(t *testing.T) {
	creditMgr := fakeContractQuerier{responses: map[string]json.RawMessage{
		"accounts":  json.RawMessage(`[{"id":"1"}]`),
		"positions": json.RawMessage(`{"lends":[{"denom":"uusdc","amount":"300"},{"denom":"untrn","amount":"999"}]}`),
	}}

	pos := NewMarsPosition("mars", creditMgr, "creditmgraddr", "mars-deposit", "uusdc")
	value, err := pos.ValueInDepositToken(context.Background())
	require.NoError(t, err)
	require.True(t, sdkmath.NewInt(300).Equal(value))
}

func TestMarsPosition_NoAccountsIsZero(t *testing.T) {
	creditMgr := fakeContractQuerier{responses: map[string]json.RawMessage{
		"accounts": json.RawMessage(`[]`),
	}}

	pos := NewMarsPosition("mars", creditMgr, "creditmgraddr", "mars-deposit", "uusdc")
	value, err := pos.ValueInDepositToken(context.Background())
	require.NoError(t, err)
	require.True(t, value.IsZero())
}
