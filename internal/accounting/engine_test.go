package accounting

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

type fakeBalanceSource map[string]sdkmath.Int

func (f fakeBalanceSource) QueryBalance(_ context.Context, account, denom string) (sdkmath.Int, error) {
	v, ok := f[account+":"+denom]
	if !ok {
		return sdkmath.Int{}, errors.New("no such balance")
	}
	return v, nil
}

func TestEngine_TotalDepositAssets_SumsAllPositions(t *testing.T) {
	balances := fakeBalanceSource{
		"deposit:uusdc": sdkmath.NewInt(100),
		"mars:uusdc":    sdkmath.NewInt(50),
	}
	positions := []Position{
		NewBalancePosition("deposit", balances, "deposit", "uusdc"),
		NewBalancePosition("mars", balances, "mars", "uusdc"),
	}
	e := NewEngine(positions...)
	total, err := e.TotalDepositAssets(context.Background())
	require.NoError(t, err)
	require.True(t, sdkmath.NewInt(150).Equal(total))
}

func TestEngine_TotalDepositAssets_FailsFastOnOneError(t *testing.T) {
	balances := fakeBalanceSource{"deposit:uusdc": sdkmath.NewInt(100)}
	positions := []Position{
		NewBalancePosition("deposit", balances, "deposit", "uusdc"),
		NewBalancePosition("missing", balances, "missing", "uusdc"),
	}
	e := NewEngine(positions...)
	_, err := e.TotalDepositAssets(context.Background())
	require.Error(t, err)
}
