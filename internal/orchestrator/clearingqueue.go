package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

// clearingQueueQueryMsg mirrors the ClearingQueue library's QueryMsg
// variants from spec.md §3/§6: the last registered obligation id (the
// circuit is its sole writer, per the Withdrawal Obligation invariant) and
// the list of obligations still awaiting settlement.
type clearingQueueQueryMsg struct {
	LatestRegisteredID *struct{}              `json:"latest_registered_id,omitempty"`
	PendingObligations *pendingObligationsArg `json:"pending_obligations,omitempty"`
}

type pendingObligationsArg struct {
	From *uint64 `json:"from,omitempty"`
	To   *uint64 `json:"to,omitempty"`
}

type latestRegisteredIDResponse struct {
	ID *uint64 `json:"id"`
}

type obligationResponse struct {
	ID          uint64           `json:"id"`
	Recipient   string           `json:"recipient"`
	PayoutCoins []payoutCoinWire `json:"payout_coins"`
	EnqueuedAt  int64            `json:"enqueued_at"`
}

type payoutCoinWire struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// latestRegisteredID returns the ClearingQueue's last registered obligation
// id, or 0 if the queue has never registered one, per spec.md §4.G:
// "qid ← queue.latest_id or 0".
func (w *Worker) latestRegisteredID(ctx context.Context) (uint64, error) {
	query, err := json.Marshal(clearingQueueQueryMsg{LatestRegisteredID: &struct{}{}})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal latest_registered_id query: %v", errs.Deserialize, err)
	}
	raw, err := w.dest.QueryContractState(ctx, w.addrs.ClearingQueue, query)
	if err != nil {
		return 0, fmt.Errorf("query clearing queue latest id: %w", err)
	}
	var resp latestRegisteredIDResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("%w: decode latest_registered_id response: %v", errs.Deserialize, err)
	}
	if resp.ID == nil {
		return 0, nil
	}
	return *resp.ID, nil
}

// pendingObligations returns every obligation the ClearingQueue still holds
// (not yet destroyed by settlement).
func (w *Worker) pendingObligations(ctx context.Context) ([]types.WithdrawalObligation, error) {
	query, err := json.Marshal(clearingQueueQueryMsg{PendingObligations: &pendingObligationsArg{}})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal pending_obligations query: %v", errs.Deserialize, err)
	}
	raw, err := w.dest.QueryContractState(ctx, w.addrs.ClearingQueue, query)
	if err != nil {
		return nil, fmt.Errorf("query clearing queue pending obligations: %w", err)
	}
	var resp []obligationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode pending_obligations response: %v", errs.Deserialize, err)
	}

	out := make([]types.WithdrawalObligation, len(resp))
	for i, o := range resp {
		coins := make([]types.PayoutCoin, len(o.PayoutCoins))
		for j, c := range o.PayoutCoins {
			amount, ok := sdkmath.NewIntFromString(c.Amount)
			if !ok {
				return nil, fmt.Errorf("%w: obligation %d payout coin %q: invalid amount %q", errs.Deserialize, o.ID, c.Denom, c.Amount)
			}
			coins[j] = types.PayoutCoin{Denom: c.Denom, Amount: amount}
		}
		out[i] = types.WithdrawalObligation{
			ID:          o.ID,
			Recipient:   o.Recipient,
			PayoutCoins: coins,
			EnqueuedAt:  time.Unix(o.EnqueuedAt, 0).UTC(),
		}
	}
	return out, nil
}

// batchByDenom sums every obligation's payout coins across denoms, the
// settle phase's "totals ← batch_by_denom(obligations)" step.
func batchByDenom(obligations []types.WithdrawalObligation) map[string]sdkmath.Int {
	totals := make(map[string]sdkmath.Int)
	for _, o := range obligations {
		for _, c := range o.PayoutCoins {
			if cur, ok := totals[c.Denom]; ok {
				totals[c.Denom] = cur.Add(c.Amount)
			} else {
				totals[c.Denom] = c.Amount
			}
		}
	}
	return totals
}
