package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"go.uber.org/zap"
)

const (
	marsWithdrawLabel = "mars_withdraw"
	settleNextLabel   = "settle_next"
)

// marsWithdrawMsg mirrors the Mars library's ExecuteMsg::ProcessFunction
// (Withdraw{denom, amount}) action from spec.md §6.
type marsWithdrawMsg struct {
	ProcessFunction marsProcessFunctionAction `json:"process_function"`
}

type marsProcessFunctionAction struct {
	Withdraw marsWithdrawAction `json:"withdraw"`
}

type marsWithdrawAction struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// settleNextMsg mirrors the Settlement library's ExecuteMsg::ProcessFunction
// (SettleNext{id}) action from spec.md §6: it settles the single oldest
// pending obligation, matching the queue's FIFO invariant.
type settleNextMsg struct {
	ProcessFunction settleProcessFunctionAction `json:"process_function"`
}

type settleProcessFunctionAction struct {
	SettleNext settleNextAction `json:"settle_next"`
}

type settleNextAction struct {
	ID uint64 `json:"id"`
}

// runSettle implements spec.md §4.G's settle phase: read pending
// obligations, total their payout coins by denom, top up any deposit-token
// deficit from Mars, warn (not fail) on any other under-collateralized
// denom since that indicates a configuration error rather than something
// this phase can correct, then enqueue one settle_next per obligation.
func (w *Worker) runSettle(ctx context.Context) error {
	obligations, err := w.pendingObligations(ctx)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if len(obligations) == 0 {
		return nil
	}

	totals := batchByDenom(obligations)

	// Deterministic iteration order for reproducible test assertions and
	// logs; map iteration order is otherwise unspecified.
	denoms := make([]string, 0, len(totals))
	for denom := range totals {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)

	for _, denom := range denoms {
		amount := totals[denom]
		settlementBal, err := w.dest.QueryBalance(ctx, w.addrs.Settlement, denom)
		if err != nil {
			return fmt.Errorf("settle: query settlement balance for %s: %w", denom, err)
		}
		if settlementBal.GTE(amount) {
			continue
		}
		deficit := amount.Sub(settlementBal)
		if denom == w.destDenom {
			if err := w.withdrawFromMars(ctx, denom, deficit); err != nil {
				return fmt.Errorf("settle: mars_withdraw %s %s: %w", deficit, denom, err)
			}
			continue
		}
		w.log.Warn("settlement account under-collateralized for non-deposit denom; this strategy cannot correct it automatically",
			zap.String("denom", denom),
			zap.String("required", amount.String()),
			zap.String("available", settlementBal.String()),
		)
	}

	for _, o := range obligations {
		if err := w.settleOne(ctx, o.ID); err != nil {
			return fmt.Errorf("settle: obligation %d: %w", o.ID, err)
		}
	}
	return nil
}

func (w *Worker) withdrawFromMars(ctx context.Context, denom string, amount sdkmath.Int) error {
	msg := marsWithdrawMsg{ProcessFunction: marsProcessFunctionAction{
		Withdraw: marsWithdrawAction{Denom: denom, Amount: amount.String()},
	}}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mars withdraw: %w", err)
	}
	if _, err := w.driver.Enqueue(ctx, marsWithdrawLabel, []json.RawMessage{raw}, nil); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if _, err := w.driver.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}

func (w *Worker) settleOne(ctx context.Context, obligationID uint64) error {
	msg := settleNextMsg{ProcessFunction: settleProcessFunctionAction{SettleNext: settleNextAction{ID: obligationID}}}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal settle_next: %w", err)
	}
	if _, err := w.driver.Enqueue(ctx, settleNextLabel, []json.RawMessage{raw}, nil); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if _, err := w.driver.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}
