package authz

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	sdktx "github.com/cosmos/cosmos-sdk/types/tx"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
)

// TxSubmitter executes a CosmWasm contract call as the strategist's single
// writer key and returns the resulting tx handle, per spec.md §5: "the
// strategist must therefore serialize its own submissions." Implemented by
// internal/chainclient/cosmosclient.Client.
type TxSubmitter interface {
	Execute(ctx context.Context, contract string, msg any, funds []sdk.Coin) (txHandle string, err error)
	GetTxReceipt(ctx context.Context, handle string) (*sdktx.GetTxResponse, error)
}

// authorizationExecuteMsg mirrors the Authorization contract's
// ExecuteMsg::PermissionlessAction variants from spec.md §6. Only the
// permissionless arm is modeled: the worker never issues the
// PermissionedAction deployment-time variants (CreateAuthorizations,
// CreateZkAuthorizations, SetVerificationRouter).
type authorizationExecuteMsg struct {
	PermissionlessAction *authorizationPermissionlessAction `json:"permissionless_action"`
}

type authorizationPermissionlessAction struct {
	SendMsgs               *sendMsgsAction  `json:"send_msgs,omitempty"`
	ExecuteZkAuthorization *executeZkAction `json:"execute_zk_authorization,omitempty"`
}

type sendMsgsAction struct {
	Label    string            `json:"label"`
	Messages []json.RawMessage `json:"messages"`
	TTL      *uint64           `json:"ttl,omitempty"`
}

type executeZkAction struct {
	Label         string `json:"label"`
	Message       string `json:"message"`       // base64 program_inputs
	Proof         string `json:"proof"`          // base64 program_proof
	DomainMessage string `json:"domain_message"` // base64 domain_inputs
	DomainProof   string `json:"domain_proof"`   // base64 domain_proof
}

// processorExecuteMsg mirrors the Processor contract's
// ExecuteMsg::PermissionlessAction(Tick) from spec.md §6.
type processorExecuteMsg struct {
	PermissionlessAction *processorPermissionlessAction `json:"permissionless_action"`
}

type processorPermissionlessAction struct {
	Tick *struct{} `json:"tick,omitempty"`
}

// Driver is component E, spec.md §4.E: the Authorization Driver.
type Driver struct {
	tx            TxSubmitter
	authzAddr     string
	processorAddr string
	log           *zap.Logger
}

// NewDriver builds a Driver against the deployed authorization and
// processor contract addresses for one strategy.
func NewDriver(tx TxSubmitter, authzAddr, processorAddr string, log *zap.Logger) *Driver {
	return &Driver{tx: tx, authzAddr: authzAddr, processorAddr: processorAddr, log: log}
}

// Enqueue submits a labelled subroutine of messages to the authorization
// contract, which checks the caller against the label's ACL and pushes the
// sub-messages onto the processor queue at the configured priority.
func (d *Driver) Enqueue(ctx context.Context, label string, messages []json.RawMessage, ttl *uint64) (string, error) {
	msg := authorizationExecuteMsg{
		PermissionlessAction: &authorizationPermissionlessAction{
			SendMsgs: &sendMsgsAction{Label: label, Messages: messages, TTL: ttl},
		},
	}
	handle, err := d.tx.Execute(ctx, d.authzAddr, msg, nil)
	if err != nil {
		return "", fmt.Errorf("enqueue label %q: %w", label, err)
	}
	d.log.Debug("authz enqueue", zap.String("label", label), zap.Int("messages", len(messages)), zap.String("tx", handle))
	return handle, nil
}

// Tick drains the processor's highest-priority non-empty batch and
// dispatches each message to its target library. Permissionless: any
// account may call it.
func (d *Driver) Tick(ctx context.Context) (string, error) {
	msg := processorExecuteMsg{PermissionlessAction: &processorPermissionlessAction{Tick: &struct{}{}}}
	handle, err := d.tx.Execute(ctx, d.processorAddr, msg, nil)
	if err != nil {
		return "", fmt.Errorf("tick: %w", err)
	}
	d.logTickAction(ctx, handle)
	return handle, nil
}

// logTickAction best-effort fetches handle's tx response and logs the wasm
// "action" event attribute the processor's dispatch emitted, distinguishing
// a tick that actually drained a message from one that found an empty
// queue. Grounded on the teacher's cosmos.GetEventValue
// (e2e/interchaintestv8/cosmos/utils.go), which walks the same
// []abcitypes.Event shape to pull a named attribute out of a broadcast
// tx's events. Neither outcome here is an error: the tick itself already
// succeeded.
func (d *Driver) logTickAction(ctx context.Context, handle string) {
	resp, err := d.tx.GetTxReceipt(ctx, handle)
	if err != nil || resp == nil || resp.TxResponse == nil {
		d.log.Debug("authz tick", zap.String("tx", handle))
		return
	}
	action, err := extractEventAttribute(resp.TxResponse.Events, "wasm", "action")
	if err != nil {
		d.log.Debug("authz tick: empty queue", zap.String("tx", handle))
		return
	}
	d.log.Debug("authz tick", zap.String("tx", handle), zap.String("action", action))
}

// ExecuteZK hands the authorization module a zk verification bundle for
// label. On successful on-chain verification it enqueues the message
// encoded in program's public inputs (spec.md §4.E, §4.H).
func (d *Driver) ExecuteZK(ctx context.Context, label string, program, domain coprocessor.Encoded) (string, error) {
	msg := authorizationExecuteMsg{
		PermissionlessAction: &authorizationPermissionlessAction{
			ExecuteZkAuthorization: &executeZkAction{
				Label:         label,
				Message:       program.PublicInputsB64,
				Proof:         program.ProofB64,
				DomainMessage: domain.PublicInputsB64,
				DomainProof:   domain.ProofB64,
			},
		},
	}
	handle, err := d.tx.Execute(ctx, d.authzAddr, msg, nil)
	if err != nil {
		return "", fmt.Errorf("execute_zk label %q: %w", label, err)
	}
	d.log.Debug("authz execute_zk", zap.String("label", label), zap.String("tx", handle))
	return handle, nil
}
