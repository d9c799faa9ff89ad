package orchestrator

import (
	"context"
	"fmt"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/proof"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/withdraw/circuit"
)

// registerObligationLabel is the authorization ACL label for zk-gated
// withdraw-request registration.
const registerObligationLabel = "register_obligation"

// runRegisterObligations implements spec.md §4.G's register_obligations
// phase: find the clearing queue's last registered id, ask the indexer for
// everything newer, and for each new withdraw request collect its witness,
// have the coprocessor prove it, and post the proof on-chain. An empty
// indexer response makes zero RPC writes and zero coprocessor requests
// (spec.md §8 scenario 6) since the loop body simply never runs.
func (w *Worker) runRegisterObligations(ctx context.Context) error {
	qid, err := w.latestRegisteredID(ctx)
	if err != nil {
		return fmt.Errorf("register_obligations: %w", err)
	}
	start := qid + 1

	events, err := w.indexer.QueryWithdrawRequests(ctx, &start, false)
	if err != nil {
		return fmt.Errorf("register_obligations: query indexer from %d: %w", start, err)
	}

	for _, ev := range events {
		if err := w.registerOne(ctx, ev.ID); err != nil {
			return fmt.Errorf("register_obligations: withdraw %d: %w", ev.ID, err)
		}
	}
	return nil
}

func (w *Worker) registerOne(ctx context.Context, withdrawID uint64) error {
	bundle, err := w.controller.Collect(ctx, withdrawID, nil)
	if err != nil {
		return fmt.Errorf("collect witness: %w", err)
	}

	// Local dry-run with the same deterministic logic the coprocessor
	// enforces, so a malformed witness is caught before spending a proving
	// request (internal/withdraw/circuit mirrors spec.md §4.H exactly).
	claim := proof.AccountClaim{
		Address:     w.addrs.SourceVault,
		Nonce:       bundle.AccountNonce,
		Balance:     bundle.AccountBal,
		StorageRoot: bundle.StorageRoot,
		CodeHash:    bundle.CodeHash,
	}
	if _, err := circuit.Run(bundle.Witness, claim, bundle.Request); err != nil {
		return fmt.Errorf("local circuit dry-run: %w", err)
	}

	witness := coprocessor.ClearingQueueWitness{WithdrawRequestID: withdrawID}
	proofResp, err := w.coprocessor.Prove(ctx, coprocessor.ClearingQueueCircuit, witness)
	if err != nil {
		return fmt.Errorf("prove: %w", err)
	}

	if _, err := w.driver.ExecuteZK(ctx, registerObligationLabel, proofResp.Program, proofResp.Domain); err != nil {
		return fmt.Errorf("execute_zk: %w", err)
	}
	if _, err := w.driver.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}
