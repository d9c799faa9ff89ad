package accounting

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ContractQuerier is the minimal CosmWasm smart-query capability accounting
// needs; satisfied by cosmosclient.Client.
type ContractQuerier interface {
	QueryContractState(ctx context.Context, contract string, queryMsg []byte) ([]byte, error)
}

// SupervaultPosition values a settlement account's LP-share balance in a
// single supervault, per spec.md §4.F's seven-step valuation: read the
// vault's asset ordering and LP denom, read the held LP shares, simulate a
// full withdraw to find the two underlying legs, pick the deposit-token
// leg, simulate a fresh deposit of that leg to find the shares it would
// mint today, and use that ratio as the exchange rate.
type SupervaultPosition struct {
	name            string
	vault           ContractQuerier
	vaultAddr       string
	balances        BalanceSource
	settlementAddr  string
	depositTokenKey string // "asset0" or "asset1", resolved against the vault's config response
	depositDenom    string
}

// NewSupervaultPosition builds a SupervaultPosition for one configured
// supervault.
func NewSupervaultPosition(name string, vault ContractQuerier, vaultAddr string, balances BalanceSource, settlementAddr, depositDenom string) SupervaultPosition {
	return SupervaultPosition{
		name:           name,
		vault:          vault,
		vaultAddr:      vaultAddr,
		balances:       balances,
		settlementAddr: settlementAddr,
		depositDenom:   depositDenom,
	}
}

func (s SupervaultPosition) Name() string { return s.name }

type supervaultConfigQuery struct {
	GetConfig struct{} `json:"get_config"`
}

type supervaultConfigResp struct {
	Denoms  []string `json:"denoms"` // [asset0 denom, asset1 denom]
	LPDenom string   `json:"lp_denom"`
}

type simulateWithdrawQuery struct {
	SimulateWithdrawLiquidity struct {
		Amount string `json:"amount"`
	} `json:"simulate_withdraw_liquidity"`
}

type simulateWithdrawResp struct {
	Asset0 string `json:"asset0"`
	Asset1 string `json:"asset1"`
}

type simulateProvideQuery struct {
	SimulateProvideLiquidity struct {
		Amount0 string `json:"amount0"`
		Amount1 string `json:"amount1"`
	} `json:"simulate_provide_liquidity"`
}

type simulateProvideResp struct {
	Shares string `json:"shares"`
}

// ValueInDepositToken implements spec.md §4.F's seven-step supervault
// valuation. Returns zero without querying further if the settlement
// account holds no LP shares.
func (s SupervaultPosition) ValueInDepositToken(ctx context.Context) (sdkmath.Int, error) {
	cfg, err := s.queryConfig(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}

	lpShares, err := s.balances.QueryBalance(ctx, s.settlementAddr, cfg.LPDenom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("query lp share balance: %w", err)
	}
	if lpShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	a0, a1, err := s.simulateWithdraw(ctx, lpShares)
	if err != nil {
		return sdkmath.Int{}, err
	}

	var depositLeg sdkmath.Int
	switch s.depositDenom {
	case cfg.Denoms[0]:
		depositLeg = a0
	case cfg.Denoms[1]:
		depositLeg = a1
	default:
		return sdkmath.Int{}, fmt.Errorf("deposit denom %q not among supervault %s's configured assets %v", s.depositDenom, s.vaultAddr, cfg.Denoms)
	}

	expectedShares, err := s.simulateProvide(ctx, depositLeg, cfg.Denoms[0] == s.depositDenom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if expectedShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	// exchange_rate = depositLeg / expectedShares; value = lpShares * exchange_rate,
	// computed as (lpShares * depositLeg) / expectedShares to floor without
	// an intermediate decimal.
	value := lpShares.Mul(depositLeg).Quo(expectedShares)
	return value, nil
}

func (s SupervaultPosition) queryConfig(ctx context.Context) (supervaultConfigResp, error) {
	req, err := json.Marshal(supervaultConfigQuery{})
	if err != nil {
		return supervaultConfigResp{}, fmt.Errorf("marshal config query: %w", err)
	}
	data, err := s.vault.QueryContractState(ctx, s.vaultAddr, req)
	if err != nil {
		return supervaultConfigResp{}, fmt.Errorf("query supervault config: %w", err)
	}
	var cfg supervaultConfigResp
	if err := json.Unmarshal(data, &cfg); err != nil {
		return supervaultConfigResp{}, fmt.Errorf("decode supervault config: %w", err)
	}
	if len(cfg.Denoms) != 2 {
		return supervaultConfigResp{}, fmt.Errorf("supervault %s config has %d denoms, expected 2", s.vaultAddr, len(cfg.Denoms))
	}
	return cfg, nil
}

func (s SupervaultPosition) simulateWithdraw(ctx context.Context, lpShares sdkmath.Int) (a0, a1 sdkmath.Int, err error) {
	var q simulateWithdrawQuery
	q.SimulateWithdrawLiquidity.Amount = lpShares.String()
	req, err := json.Marshal(q)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("marshal simulate_withdraw_liquidity query: %w", err)
	}
	data, err := s.vault.QueryContractState(ctx, s.vaultAddr, req)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("simulate withdraw: %w", err)
	}
	var resp simulateWithdrawResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("decode simulate_withdraw_liquidity response: %w", err)
	}
	a0, ok := sdkmath.NewIntFromString(resp.Asset0)
	if !ok {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("non-numeric asset0 %q from supervault %s", resp.Asset0, s.vaultAddr)
	}
	a1, ok = sdkmath.NewIntFromString(resp.Asset1)
	if !ok {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("non-numeric asset1 %q from supervault %s", resp.Asset1, s.vaultAddr)
	}
	return a0, a1, nil
}

func (s SupervaultPosition) simulateProvide(ctx context.Context, depositLeg sdkmath.Int, depositIsAsset0 bool) (sdkmath.Int, error) {
	var q simulateProvideQuery
	if depositIsAsset0 {
		q.SimulateProvideLiquidity.Amount0 = depositLeg.String()
		q.SimulateProvideLiquidity.Amount1 = "0"
	} else {
		q.SimulateProvideLiquidity.Amount0 = "0"
		q.SimulateProvideLiquidity.Amount1 = depositLeg.String()
	}
	req, err := json.Marshal(q)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("marshal simulate_provide_liquidity query: %w", err)
	}
	data, err := s.vault.QueryContractState(ctx, s.vaultAddr, req)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("simulate provide: %w", err)
	}
	var resp simulateProvideResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return sdkmath.Int{}, fmt.Errorf("decode simulate_provide_liquidity response: %w", err)
	}
	shares, ok := sdkmath.NewIntFromString(resp.Shares)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("non-numeric shares %q from supervault %s", resp.Shares, s.vaultAddr)
	}
	return shares, nil
}
