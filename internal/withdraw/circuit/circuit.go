// Package circuit models component H of spec.md §4.H: the clearing-queue
// circuit's own logic. The real circuit runs inside the external zk
// coprocessor and is out of this module's scope (spec.md §1); this package
// is a pure, deterministic reimplementation of its four steps, used by the
// orchestrator's registration phase as a local dry-run before submitting a
// witness for proving and
// exercised directly by tests, so the same re-verify/scale/emit semantics
// the coprocessor is trusted to enforce are checked in this codebase too.
package circuit

import (
	"encoding/json"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/proof"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

// ScaleFactor is the circuit's compile-time payout scaling constant, per
// spec.md §4.H: "The scaling factor is a compile-time constant of the
// circuit (10^8)."
var ScaleFactor = sdkmath.NewInt(100_000_000)

// RegisterObligationMsg mirrors the ClearingQueue library's
// ExecuteMsg::ProcessFunction(RegisterObligation{recipient, payout_amount,
// id}) from spec.md §6: the message the circuit emits as its public output,
// which the authorization module routes to the clearing queue once the zk
// proof verifies on-chain.
type RegisterObligationMsg struct {
	ProcessFunction processFunctionAction `json:"process_function"`
}

type processFunctionAction struct {
	RegisterObligation *registerObligationAction `json:"register_obligation,omitempty"`
}

type registerObligationAction struct {
	Recipient    string `json:"recipient"`
	PayoutAmount string `json:"payout_amount"`
	ID           uint64 `json:"id"`
}

// Run executes the circuit's four steps from spec.md §4.H against a
// withdraw request witness: (1) re-verify the MPT proof against claim, (2)
// assert the request's redemption rate is nonzero, (3) compute the payout
// with an overflow check, (4) emit the RegisterObligation message.
func Run(witness types.MPTWitness, claim proof.AccountClaim, req types.WithdrawRequest) (json.RawMessage, error) {
	if err := proof.VerifyAccount(witness, claim); err != nil {
		return nil, err
	}
	if err := proof.VerifyWithdrawRequestStorage(witness, claim.StorageRoot, req.ID, req); err != nil {
		return nil, err
	}
	if req.RedemptionRate.IsZero() {
		return nil, errs.ProofInvalidAt("zero_rate")
	}

	payout, err := computePayout(req.SharesAmount, req.RedemptionRate)
	if err != nil {
		return nil, err
	}

	msg := RegisterObligationMsg{
		ProcessFunction: processFunctionAction{
			RegisterObligation: &registerObligationAction{
				Recipient:    req.Receiver,
				PayoutAmount: payout.String(),
				ID:           req.ID,
			},
		},
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal register_obligation: %v", errs.Deserialize, err)
	}
	return out, nil
}

// computePayout computes shares·rate÷ScaleFactor with an explicit overflow
// check on the intermediate product, aborting rather than silently
// truncating into a 256-bit-bounded math.Int, per spec.md §4.H step 3.
func computePayout(shares, rate sdkmath.Int) (sdkmath.Int, error) {
	product := new(big.Int).Mul(shares.BigInt(), rate.BigInt())
	if product.BitLen() > 256 {
		return sdkmath.Int{}, fmt.Errorf("%w: payout_amount overflow", errs.VerificationFailed)
	}
	payout := new(big.Int).Quo(product, ScaleFactor.BigInt())
	return sdkmath.NewIntFromBigInt(payout), nil
}
