package orchestrator

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/accounting"
)

// EVMBalanceSource adapts an EVMClient to accounting.BalanceSource, parsing
// the string account as a hex address. Named per the accounting package's
// doc comment naming internal/orchestrator as the wiring layer that bridges
// chain-specific clients to its chain-agnostic Position interface.
type EVMBalanceSource struct {
	Client EVMClient
}

func (s EVMBalanceSource) QueryBalance(ctx context.Context, account, denom string) (sdkmath.Int, error) {
	bal, err := s.Client.QueryBalance(ctx, common.HexToAddress(account), denom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("evm balance source: %w", err)
	}
	return sdkmath.NewIntFromBigInt(bal), nil
}

// CosmosBalanceSource adapts a CosmosClient to accounting.BalanceSource,
// parsing the string account as bech32.
type CosmosBalanceSource struct {
	Client CosmosClient
}

func (s CosmosBalanceSource) QueryBalance(ctx context.Context, account, denom string) (sdkmath.Int, error) {
	addr, err := sdk.AccAddressFromBech32(account)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("cosmos balance source: parse account %q: %w", account, err)
	}
	return s.Client.QueryBalance(ctx, addr, denom)
}

var (
	_ accounting.BalanceSource   = EVMBalanceSource{}
	_ accounting.BalanceSource   = CosmosBalanceSource{}
	_ accounting.ContractQuerier = (CosmosClient)(nil)
)
