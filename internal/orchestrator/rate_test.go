package orchestrator

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

func encodeUint256(t *testing.T, v int64) []byte {
	t.Helper()
	out, err := uint256Args.Pack(big.NewInt(v))
	require.NoError(t, err)
	return out
}

// TestRunUpdateRate_GuardViolationPausesVault exercises spec.md §8 scenario
// 5: current rate 1.0000, computed rate 1.06, max_rate_increment_bps = 500.
// The update must be rejected and the vault paused, never posted.
func TestRunUpdateRate_GuardViolationPausesVault(t *testing.T) {
	evm := newFakeEVM()
	evm.contractReads[string(totalSupplySelector[:])] = encodeUint256(t, 10_000_000_000)
	evm.contractReads[string(redemptionRateSelector[:])] = encodeUint256(t, 10_000)

	w := &Worker{
		evm:        evm,
		accounting: fakeAccounting{total: sdkmath.NewInt(10_600_000_000)},
		addrs:      Addresses{SourceVault: common.Address{}},
		tunables: types.StrategyTunables{
			RateScalingFactor:   sdkmath.NewInt(10_000),
			MaxRateIncrementBps: 500,
			MaxRateDecrementBps: 500,
		},
		log: testLogger(),
	}

	err := w.runUpdateRate(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errs.GuardViolation)

	require.Len(t, evm.executed, 1)
	require.True(t, bytes.Equal(evm.executed[0].calldata, pauseSelector[:]), "expected pause() call, got calldata %x", evm.executed[0].calldata)
}

// TestRunUpdateRate_WithinBoundsPostsRate confirms a rate within the
// configured guard is posted and the vault is never paused.
func TestRunUpdateRate_WithinBoundsPostsRate(t *testing.T) {
	evm := newFakeEVM()
	evm.contractReads[string(totalSupplySelector[:])] = encodeUint256(t, 10_000_000_000)
	evm.contractReads[string(redemptionRateSelector[:])] = encodeUint256(t, 10_000)

	w := &Worker{
		evm:        evm,
		accounting: fakeAccounting{total: sdkmath.NewInt(10_100_000_000)},
		addrs:      Addresses{SourceVault: common.Address{}},
		tunables: types.StrategyTunables{
			RateScalingFactor:   sdkmath.NewInt(10_000),
			MaxRateIncrementBps: 500,
			MaxRateDecrementBps: 500,
		},
		log: testLogger(),
	}

	require.NoError(t, w.runUpdateRate(context.Background()))
	require.Len(t, evm.executed, 1)
	require.True(t, bytes.Equal(evm.executed[0].calldata[:4], updateRateSelector[:]), "expected update(uint256) call")
}

// TestRunUpdateRate_ZeroCurrentRateSkips confirms the genesis current_rate =
// 0 case (spec.md §9) fails closed: no update, no pause, no error.
func TestRunUpdateRate_ZeroCurrentRateSkips(t *testing.T) {
	evm := newFakeEVM()
	evm.contractReads[string(totalSupplySelector[:])] = encodeUint256(t, 10_000_000_000)
	evm.contractReads[string(redemptionRateSelector[:])] = encodeUint256(t, 0)

	w := &Worker{
		evm:        evm,
		accounting: fakeAccounting{total: sdkmath.NewInt(10_100_000_000)},
		addrs:      Addresses{SourceVault: common.Address{}},
		tunables: types.StrategyTunables{
			RateScalingFactor:   sdkmath.NewInt(10_000),
			MaxRateIncrementBps: 500,
			MaxRateDecrementBps: 500,
		},
		log: testLogger(),
	}

	require.NoError(t, w.runUpdateRate(context.Background()))
	require.Empty(t, evm.executed)
}
