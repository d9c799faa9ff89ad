// Package types holds the strategist's data model: withdraw requests as
// they live in the source-chain vault, withdrawal obligations as they live
// on the destination chain, the per-domain strategy configuration, the
// account graph, MPT proof witnesses, the redemption rate and the
// settlement split policy. See spec.md §3.
package types

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
)

// WithdrawRequest mirrors the four-slot-plus-tail layout of a single entry
// in the source vault's withdrawRequests mapping.
type WithdrawRequest struct {
	ID             uint64
	Owner          common.Address
	RedemptionRate math.Int
	SharesAmount   math.Int
	Receiver       string
}

// PayoutCoin is one (denom, amount) leg of a WithdrawalObligation's payout.
type PayoutCoin = sdk.Coin

// WithdrawalObligation is a single entry in the destination-chain Clearing
// Queue, registered by the withdraw circuit and destroyed by settlement.
type WithdrawalObligation struct {
	ID          uint64
	Recipient   string
	PayoutCoins []PayoutCoin
	EnqueuedAt  time.Time
}

// RedemptionRate is the fixed-point ratio used to convert vault shares into
// units of the deposit token, with ScalingFactor as its denominator.
type RedemptionRate struct {
	Value         math.Int
	ScalingFactor math.Int
}

// AsDec returns the rate as a decimal (Value / ScalingFactor).
func (r RedemptionRate) AsDec() math.LegacyDec {
	return math.LegacyNewDecFromInt(r.Value).Quo(math.LegacyNewDecFromInt(r.ScalingFactor))
}

// GuardBounds reports whether candidate falls within
// [(1-maxDecBps/10000)*r, (1+maxIncBps/10000)*r] of the current rate.
func (r RedemptionRate) GuardBounds(candidate RedemptionRate, maxIncBps, maxDecBps uint32) (ok bool, lower, upper math.LegacyDec) {
	cur := r.AsDec()
	bps := math.LegacyNewDec(10000)
	lower = cur.Mul(bps.Sub(math.LegacyNewDec(int64(maxDecBps))).Quo(bps))
	upper = cur.Mul(bps.Add(math.LegacyNewDec(int64(maxIncBps))).Quo(bps))
	c := candidate.AsDec()
	ok = !c.LT(lower) && !c.GT(upper)
	return ok, lower, upper
}

// SettlementSplitPolicy maps a destination denom to the decimal fraction of
// that denom's payout sourced from Mars versus each supervault. Ratios for
// a denom must sum to 1.
type SettlementSplitPolicy struct {
	// Denom -> destination name (e.g. "mars", or a supervault account key) -> ratio.
	Splits map[string]map[string]math.LegacyDec
}

// Validate checks that every denom's ratios sum to exactly 1.
func (p SettlementSplitPolicy) Validate() error {
	for denom, byDest := range p.Splits {
		sum := math.LegacyZeroDec()
		for _, r := range byDest {
			sum = sum.Add(r)
		}
		if !sum.Equal(math.LegacyOneDec()) {
			return fmt.Errorf("settlement split for denom %q sums to %s, expected 1", denom, sum)
		}
	}
	return nil
}

// Apply splits amount for denom across destinations per the configured
// ratios, flooring each leg and assigning any dust remainder to the first
// destination in iteration order (Mars, by convention the first configured
// destination for every denom in this strategy family).
func (p SettlementSplitPolicy) Apply(denom string, amount math.Int, order []string) (map[string]math.Int, error) {
	byDest, ok := p.Splits[denom]
	if !ok {
		return nil, fmt.Errorf("no settlement split configured for denom %q", denom)
	}
	out := make(map[string]math.Int, len(byDest))
	assigned := math.ZeroInt()
	for _, dest := range order {
		ratio, ok := byDest[dest]
		if !ok {
			continue
		}
		leg := math.LegacyNewDecFromInt(amount).Mul(ratio).TruncateInt()
		out[dest] = leg
		assigned = assigned.Add(leg)
	}
	if len(order) > 0 {
		out[order[0]] = out[order[0]].Add(amount.Sub(assigned))
	}
	return out, nil
}

// StorageSlotProof is one proven storage slot: the slot's location key, its
// RLP-encoded value, and the MPT path proving that value under a storage
// root.
type StorageSlotProof struct {
	Key   common.Hash
	Value []byte
	Path  [][]byte
}

// MPTWitness proves that at a fixed block the account at a fixed address
// had exactly the claimed storage root and code hash, and that each listed
// storage slot had exactly the claimed value. See spec.md §3 and §4.B.
type MPTWitness struct {
	StateRoot     common.Hash
	AccountProof  [][]byte
	StorageProofs []StorageSlotProof
}

// NamedAccount is one node in the per-strategy Account Graph: an
// externally-owned smart-contract account with a whitelist of libraries
// permitted to move its funds. The topology is fixed at deployment time and
// never mutated at runtime; only balances change.
type NamedAccount struct {
	Name               string
	Address            string
	AuthorizedLibraries []string
}

// AccountGraph is the fixed topology of accounts for one strategy.
type AccountGraph struct {
	Deposit          NamedAccount
	MarsDeposit      NamedAccount
	SupervaultDeposit []NamedAccount
	Settlement       NamedAccount
}

// All returns every account in the graph, deposit first.
func (g AccountGraph) All() []NamedAccount {
	out := []NamedAccount{g.Deposit, g.MarsDeposit, g.Settlement}
	out = append(out, g.SupervaultDeposit...)
	return out
}

// StrategyTunables are the per-strategy knobs named in spec.md §3.
type StrategyTunables struct {
	IBCTransferThreshold math.Int
	RateScalingFactor    math.Int
	MaxRateIncrementBps  uint32
	MaxRateDecrementBps  uint32
	StrategyTimeout      time.Duration
	// ICAPollFraction is the heuristic fraction (spec.md §9: "expected/2")
	// of the sent amount the deposit phase is satisfied to observe having
	// landed on the intermediary ICA, to tolerate dynamic IBC-Eureka fees.
	// Made configurable per spec.md §9 rather than a hardcoded constant.
	ICAPollFraction math.LegacyDec
}
