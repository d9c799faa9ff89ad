package types

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestRedemptionRateGuardBounds(t *testing.T) {
	// spec.md §8 scenario 5: current 1.0000, computed 1.06, max inc 500bps -> rejected.
	cur := RedemptionRate{Value: math.NewInt(1_0000_0000), ScalingFactor: math.NewInt(1_0000_0000)}
	candidate := RedemptionRate{Value: math.NewInt(1_0600_0000), ScalingFactor: math.NewInt(1_0000_0000)}

	ok, _, upper := cur.GuardBounds(candidate, 500, 500)
	require.False(t, ok)
	require.True(t, candidate.AsDec().GT(upper))
}

func TestRedemptionRateGuardBoundsWithinRange(t *testing.T) {
	cur := RedemptionRate{Value: math.NewInt(1_0000_0000), ScalingFactor: math.NewInt(1_0000_0000)}
	candidate := RedemptionRate{Value: math.NewInt(1_0040_0000), ScalingFactor: math.NewInt(1_0000_0000)}

	ok, _, _ := cur.GuardBounds(candidate, 500, 500)
	require.True(t, ok)
}

func TestSettlementSplitPolicyValidate(t *testing.T) {
	p := SettlementSplitPolicy{Splits: map[string]map[string]math.LegacyDec{
		"uusdc": {
			"mars":       math.LegacyMustNewDecFromStr("0.7"),
			"supervault": math.LegacyMustNewDecFromStr("0.3"),
		},
	}}
	require.NoError(t, p.Validate())

	bad := SettlementSplitPolicy{Splits: map[string]map[string]math.LegacyDec{
		"uusdc": {"mars": math.LegacyMustNewDecFromStr("0.5")},
	}}
	require.Error(t, bad.Validate())
}

func TestSettlementSplitPolicyApply(t *testing.T) {
	p := SettlementSplitPolicy{Splits: map[string]map[string]math.LegacyDec{
		"uusdc": {
			"mars":       math.LegacyMustNewDecFromStr("0.7"),
			"supervault": math.LegacyMustNewDecFromStr("0.3"),
		},
	}}
	legs, err := p.Apply("uusdc", math.NewInt(100), []string{"mars", "supervault"})
	require.NoError(t, err)
	total := legs["mars"].Add(legs["supervault"])
	require.True(t, total.Equal(math.NewInt(100)), "split legs must sum to the original amount, dust included")
}
