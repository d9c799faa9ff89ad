package accounting

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// BalanceSource is the minimal capability accounting needs from a chain
// client: a plain token balance lookup, independent of whether the
// underlying chain is EVM or Cosmos. evmclient.Client and
// cosmosclient.Client are each wrapped to satisfy this in
// internal/orchestrator (the worker's wiring layer), keeping this package
// free of a direct dependency on either concrete chain client.
type BalanceSource interface {
	QueryBalance(ctx context.Context, account, denom string) (sdkmath.Int, error)
}

// BalancePosition is a single program account's plain deposit-token
// balance: the simplest of the positions spec.md §4.F sums, used for every
// entry in the Account Graph.
type BalancePosition struct {
	name    string
	source  BalanceSource
	account string
	denom   string
}

// NewBalancePosition builds a BalancePosition for account's balance of
// denom on source's chain.
func NewBalancePosition(name string, source BalanceSource, account, denom string) BalancePosition {
	return BalancePosition{name: name, source: source, account: account, denom: denom}
}

func (b BalancePosition) Name() string { return b.name }

func (b BalancePosition) ValueInDepositToken(ctx context.Context) (sdkmath.Int, error) {
	amount, err := b.source.QueryBalance(ctx, b.account, b.denom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("query balance: %w", err)
	}
	return amount, nil
}
