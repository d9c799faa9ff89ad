package coprocessor

import "encoding/json"

// ProgramID identifies a specific zk coprocessor circuit by its registered
// name, matching spec.md §6's program identifiers.
type ProgramID string

const (
	// ClearingQueueCircuit re-verifies a withdraw-request MPT witness and
	// emits a RegisterObligation message (spec.md §4.H).
	ClearingQueueCircuit ProgramID = "clearing_queue"
	// EurekaRouteCircuit proves a skip-route response used to authorize
	// an IBC-Eureka transfer during the deposit phase (spec.md §9).
	EurekaRouteCircuit ProgramID = "eureka_route"
)

// ClearingQueueWitness is the JSON input shape for the clearing-queue
// circuit, per spec.md §6: {"withdraw_request_id": u64}.
type ClearingQueueWitness struct {
	WithdrawRequestID uint64 `json:"withdraw_request_id"`
}

// EurekaRouteWitness is the JSON input shape for the eureka-route circuit,
// per spec.md §6: {"skip_response": {...}}. The skip response body is
// opaque to the strategist (sourced verbatim from the Skip API per
// original_source/packages/src/utils/skip.rs) so it is carried as raw JSON.
type EurekaRouteWitness struct {
	SkipResponse json.RawMessage `json:"skip_response"`
}
