package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

var uint256Args = abi.Arguments{{Type: uint256Type}}

// runUpdateRate implements spec.md §4.G's update_rate phase: compute the
// vault's new redemption rate from total deposit assets and outstanding
// shares, guard it against the configured bps delta, and either post the
// new rate or pause the vault as a corrective action.
func (w *Worker) runUpdateRate(ctx context.Context) error {
	assets, err := w.accounting.TotalDepositAssets(ctx)
	if err != nil {
		return fmt.Errorf("update_rate: total deposit assets: %w", err)
	}

	shares, err := w.queryVaultTotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("update_rate: query total supply: %w", err)
	}
	if shares.IsZero() {
		return fmt.Errorf("update_rate: vault reports zero total supply, refusing to divide")
	}

	currentRateValue, err := w.queryVaultRedemptionRate(ctx)
	if err != nil {
		return fmt.Errorf("update_rate: query redemption rate: %w", err)
	}
	currentRate := types.RedemptionRate{Value: currentRateValue, ScalingFactor: w.tunables.RateScalingFactor}

	// Rate-guard behavior at current_rate = 0 (genesis) is an explicitly
	// undefined case in spec.md §9; the rewrite fails closed (skips the
	// update) rather than dividing by it.
	if currentRate.Value.IsZero() {
		w.log.Warn("update_rate: current on-chain rate is zero, skipping update this cycle")
		return nil
	}

	newRateValue := assets.Mul(w.tunables.RateScalingFactor).Quo(shares)
	newRate := types.RedemptionRate{Value: newRateValue, ScalingFactor: w.tunables.RateScalingFactor}

	ok, lower, upper := currentRate.GuardBounds(newRate, w.tunables.MaxRateIncrementBps, w.tunables.MaxRateDecrementBps)
	if !ok {
		w.log.Error("update_rate: computed rate violates guard bounds, pausing vault",
			zap.String("current", currentRate.AsDec().String()),
			zap.String("computed", newRate.AsDec().String()),
			zap.String("lower_bound", lower.String()),
			zap.String("upper_bound", upper.String()),
		)
		if perr := w.pauseVault(ctx); perr != nil {
			return fmt.Errorf("update_rate: %w (and pause vault also failed: %v)", errs.GuardViolation, perr)
		}
		return fmt.Errorf("%w: computed rate %s outside [%s, %s]", errs.GuardViolation, newRate.AsDec(), lower, upper)
	}

	if err := w.postVaultRate(ctx, newRateValue); err != nil {
		return fmt.Errorf("update_rate: post rate: %w", err)
	}
	return nil
}

func (w *Worker) queryVaultTotalSupply(ctx context.Context) (sdkmath.Int, error) {
	out, err := w.evm.QueryContractState(ctx, w.addrs.SourceVault, totalSupplySelector[:])
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("query totalSupply: %w", err)
	}
	return decodeUint256(out)
}

func (w *Worker) queryVaultRedemptionRate(ctx context.Context) (sdkmath.Int, error) {
	out, err := w.evm.QueryContractState(ctx, w.addrs.SourceVault, redemptionRateSelector[:])
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("query redemptionRate: %w", err)
	}
	return decodeUint256(out)
}

func (w *Worker) postVaultRate(ctx context.Context, rate sdkmath.Int) error {
	calldata, err := uint256Args.Pack(rate.BigInt())
	if err != nil {
		return fmt.Errorf("pack update(uint256) args: %w", err)
	}
	calldata = append(append([]byte{}, updateRateSelector[:]...), calldata...)
	if _, err := w.evm.Execute(ctx, w.addrs.SourceVault, calldata, nil); err != nil {
		return fmt.Errorf("submit update(uint256): %w", err)
	}
	return nil
}

func decodeUint256(out []byte) (sdkmath.Int, error) {
	vals, err := uint256Args.Unpack(out)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: decode uint256 return: %v", errs.Deserialize, err)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: unexpected uint256 return type %T", errs.Deserialize, vals[0])
	}
	return sdkmath.NewIntFromBigInt(v), nil
}
