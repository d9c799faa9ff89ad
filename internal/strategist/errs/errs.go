// Package errs defines the error taxonomy shared across every strategist
// component: Transport, Deserialize, Timeout, ProofInvalid, Unauthorized,
// VerificationFailed, AtomicSubroutineFailed, GuardViolation and Config.
package errs

import (
	"fmt"

	sdkerrors "cosmossdk.io/errors"
)

// codespace is the cosmossdk.io/errors registration namespace for every
// error kind below. Using one codespace keeps errors.Is comparisons and
// ABCI code mapping uniform whether the failure originated on the EVM side
// or the Cosmos side.
const codespace = "strategist"

var (
	// Transport indicates a retryable network/RPC failure talking to a
	// chain node, the coprocessor, or the indexer.
	Transport = sdkerrors.Register(codespace, 1, "transport error")
	// Deserialize indicates a response could not be decoded into the
	// expected shape. Fatal to the operation that produced it.
	Deserialize = sdkerrors.Register(codespace, 2, "deserialize error")
	// TxRejected indicates a submitted transaction was rejected by the
	// chain (as opposed to timing out).
	TxRejected = sdkerrors.Register(codespace, 3, "transaction rejected")
	// Timeout indicates a poll or call exceeded its bounded attempt
	// budget. Retryable on the next cycle.
	Timeout = sdkerrors.Register(codespace, 4, "timeout")
	// ProofInvalid indicates an MPT proof or ABI decode failed to verify
	// against the expected root/value. Never silently proceed past this.
	ProofInvalid = sdkerrors.Register(codespace, 5, "proof invalid")
	// Unauthorized indicates the authorization module rejected the caller
	// against a label's ACL.
	Unauthorized = sdkerrors.Register(codespace, 6, "unauthorized")
	// VerificationFailed indicates a zk verification bundle failed
	// on-chain verification.
	VerificationFailed = sdkerrors.Register(codespace, 7, "zk verification failed")
	// AtomicSubroutineFailed indicates one message in an atomic
	// subroutine failed; on-chain state is unchanged by design.
	AtomicSubroutineFailed = sdkerrors.Register(codespace, 8, "atomic subroutine failed")
	// GuardViolation indicates a redemption-rate update fell outside the
	// configured bps bounds; the vault is paused as a corrective action.
	GuardViolation = sdkerrors.Register(codespace, 9, "rate guard violation")
	// Config indicates a fatal-at-startup configuration problem.
	Config = sdkerrors.Register(codespace, 10, "configuration error")
	// Pending indicates a coprocessor request was accepted but has not
	// finished proving; the caller may poll.
	Pending = sdkerrors.Register(codespace, 11, "proof pending")
	// ProverRejected indicates the circuit rejected its input.
	ProverRejected = sdkerrors.Register(codespace, 12, "prover rejected input")
)

// AtomicSubroutineFailure wraps AtomicSubroutineFailed with the index of
// the message that failed inside the subroutine.
func AtomicSubroutineFailure(index int, cause error) error {
	return sdkerrors.Wrapf(AtomicSubroutineFailed, "message %d: %v", index, cause)
}

// ProofInvalidAt wraps ProofInvalid with the name of the slot/field that
// failed to verify, matching spec scenario naming (e.g. "state_root",
// "slot0", "receiver_length").
func ProofInvalidAt(which string) error {
	return fmt.Errorf("%w: %s", ProofInvalid, which)
}
