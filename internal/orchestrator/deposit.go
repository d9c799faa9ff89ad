package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
)

const (
	icaTransferLabel           = "ica_transfer"
	lendAndProvideLiquidityLbl = "lend_and_provide_liquidity"
	icaPollInterval            = 30 * time.Second
	icaPollBudget              = 25 * time.Minute
	destDepositPollInterval    = 15 * time.Second
	destDepositPollAttempts    = 40
)

// minSplitBalance is the minimum destination-deposit balance at which the
// worker splits funds out to Mars and the supervaults. At 1 it splits any
// nonzero balance; small deposits are not held back to be batched.
var minSplitBalance = sdkmath.NewInt(1)

// runDepositing implements spec.md §4.G's deposit phase: move newly
// deposited funds from the source vault, across the IBC-Eureka route, into
// the destination deposit account, then fan them out to the productive
// positions.
func (w *Worker) runDepositing(ctx context.Context) error {
	srcBalance, err := w.evm.QueryBalance(ctx, w.addrs.SourceVault, w.depositDenom)
	if err != nil {
		return fmt.Errorf("depositing: query source balance: %w", err)
	}

	if srcBalance.Cmp(w.tunables.IBCTransferThreshold.BigInt()) >= 0 {
		if err := w.routeDeposit(ctx, srcBalance); err != nil {
			return fmt.Errorf("depositing: route deposit: %w", err)
		}
	}

	icaBalance, err := w.ica.QueryBalance(ctx, w.addrs.ICA, w.destDenom)
	if err != nil {
		return fmt.Errorf("depositing: query ica balance: %w", err)
	}
	if icaBalance.IsPositive() {
		if err := w.drainICA(ctx, icaBalance); err != nil {
			return fmt.Errorf("depositing: drain ica: %w", err)
		}
	}

	destBalance, err := w.dest.QueryBalance(ctx, w.addrs.Deposit, w.destDenom)
	if err != nil {
		return fmt.Errorf("depositing: query dest deposit balance: %w", err)
	}
	if destBalance.GTE(minSplitBalance) {
		if err := w.splitAndDeploy(ctx, destBalance); err != nil {
			return fmt.Errorf("depositing: split and deploy: %w", err)
		}
	}
	return nil
}

// routeDeposit proves the Skip/IBC-Eureka route for amount of the source
// deposit asset and posts the resulting zk-message on the source chain
// (spec.md §4.G: "prove skip-route; post zk-message on source chain"),
// then polls the intermediary ICA for the configured heuristic fraction of
// the sent amount (spec.md §9: the "expected/2"-style heuristic, made
// configurable as ICAPollFraction rather than hardcoded).
func (w *Worker) routeDeposit(ctx context.Context, amount *big.Int) error {
	amountInt := sdkmath.NewIntFromBigInt(amount)

	skipResponse, err := w.skipRouter.GetRoute(ctx, amountInt)
	if err != nil {
		return fmt.Errorf("query skip route: %w", err)
	}

	proofResp, err := w.coprocessor.Prove(ctx, coprocessor.EurekaRouteCircuit, coprocessor.EurekaRouteWitness{SkipResponse: skipResponse})
	if err != nil {
		return fmt.Errorf("prove eureka route: %w", err)
	}

	programProof, programInputs, err := proofResp.Program.Decode()
	if err != nil {
		return fmt.Errorf("decode program proof: %w", err)
	}
	domainProof, _, err := proofResp.Domain.Decode()
	if err != nil {
		return fmt.Errorf("decode domain proof: %w", err)
	}

	calldata, err := encodeExecuteZKMessage(programInputs, programProof, domainProof)
	if err != nil {
		return fmt.Errorf("encode executeZKMessage: %w", err)
	}
	if _, err := w.evm.Execute(ctx, w.addrs.SourceAuthorization, calldata, nil); err != nil {
		return fmt.Errorf("submit executeZKMessage: %w", err)
	}

	target := w.tunables.ICAPollFraction.MulInt(amountInt).TruncateInt()
	attempts := int(icaPollBudget / icaPollInterval)
	if _, err := w.ica.PollUntilBalance(ctx, w.addrs.ICA, w.destDenom, target, icaPollInterval, attempts); err != nil {
		return fmt.Errorf("poll intermediary ica balance: %w", err)
	}
	return nil
}

// icaTransferMsg mirrors the ICA library's ExecuteMsg::ProcessFunction
// (UpdateICAAmount{amount}) and (IBCTransfer{}) actions from spec.md §6:
// the former tells the library how much the ICA now holds, the latter
// triggers the IBC transfer of that amount into the destination deposit
// account.
type icaTransferMsg struct {
	ProcessFunction icaProcessFunctionAction `json:"process_function"`
}

type icaProcessFunctionAction struct {
	UpdateICAAmount *updateICAAmountAction `json:"update_ica_amount,omitempty"`
	IBCTransfer     *struct{}              `json:"ibc_transfer,omitempty"`
}

type updateICAAmountAction struct {
	Amount string `json:"amount"`
}

// drainICA enqueues the atomic (update-ica-amount, ibc-transfer) subroutine
// for the observed ICA balance, ticks the processor, then waits for the
// funds to land in the destination deposit account.
func (w *Worker) drainICA(ctx context.Context, icaBalance sdkmath.Int) error {
	updateMsg, err := json.Marshal(icaTransferMsg{ProcessFunction: icaProcessFunctionAction{
		UpdateICAAmount: &updateICAAmountAction{Amount: icaBalance.String()},
	}})
	if err != nil {
		return fmt.Errorf("marshal update_ica_amount: %w", err)
	}
	transferMsg, err := json.Marshal(icaTransferMsg{ProcessFunction: icaProcessFunctionAction{
		IBCTransfer: &struct{}{},
	}})
	if err != nil {
		return fmt.Errorf("marshal ibc_transfer: %w", err)
	}

	if _, err := w.driver.Enqueue(ctx, icaTransferLabel, []json.RawMessage{updateMsg, transferMsg}, nil); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if _, err := w.driver.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}

	if _, err := w.dest.PollUntilBalance(ctx, w.addrs.Deposit, w.destDenom, icaBalance, destDepositPollInterval, destDepositPollAttempts); err != nil {
		return fmt.Errorf("poll dest deposit balance: %w", err)
	}
	return nil
}

// splitMsg mirrors the Splitter library's ExecuteMsg::ProcessFunction
// (Split{amounts}) action, fanning destBalance out across Mars and the
// supervaults per w.depositSplit.
type splitMsg struct {
	ProcessFunction splitProcessFunctionAction `json:"process_function"`
}

type splitProcessFunctionAction struct {
	Split splitAction `json:"split"`
}

type splitAction struct {
	Amounts map[string]string `json:"amounts"`
}

type lendMsg struct {
	ProcessFunction lendProcessFunctionAction `json:"process_function"`
}

type lendProcessFunctionAction struct {
	Lend *struct{} `json:"lend,omitempty"`
}

type provideLiquidityMsg struct {
	ProcessFunction provideLiquidityProcessFunctionAction `json:"process_function"`
}

type provideLiquidityProcessFunctionAction struct {
	ProvideLiquidity provideLiquidityAction `json:"provide_liquidity"`
}

type provideLiquidityAction struct {
	Vault string `json:"vault"`
}

// splitAndDeploy enqueues the atomic (split, lend, provide_liquidity × K)
// subroutine per spec.md §4.G, deploying destBalance into Mars and every
// configured supervault in a single all-or-nothing batch.
//
// TODO: behavior during a "phase shift" (a separate multisig authorization
// rewriting w.splitOrder/w.depositSplit to add or retire a supervault) is
// left undefined per spec.md §9 — this worker does not special-case a
// mid-shift window and simply uses whatever split is configured at the
// start of the cycle.
func (w *Worker) splitAndDeploy(ctx context.Context, destBalance sdkmath.Int) error {
	legs, err := w.depositSplit.Apply(w.destDenom, destBalance, w.splitOrder)
	if err != nil {
		return fmt.Errorf("apply deposit split: %w", err)
	}

	amounts := make(map[string]string, len(legs))
	for dest, amount := range legs {
		amounts[dest] = amount.String()
	}
	splitJSON, err := json.Marshal(splitMsg{ProcessFunction: splitProcessFunctionAction{Split: splitAction{Amounts: amounts}}})
	if err != nil {
		return fmt.Errorf("marshal split: %w", err)
	}

	messages := []json.RawMessage{splitJSON}

	lendJSON, err := json.Marshal(lendMsg{ProcessFunction: lendProcessFunctionAction{Lend: &struct{}{}}})
	if err != nil {
		return fmt.Errorf("marshal lend: %w", err)
	}
	messages = append(messages, lendJSON)

	for _, dest := range w.splitOrder[1:] {
		msgJSON, err := json.Marshal(provideLiquidityMsg{ProcessFunction: provideLiquidityProcessFunctionAction{
			ProvideLiquidity: provideLiquidityAction{Vault: dest},
		}})
		if err != nil {
			return fmt.Errorf("marshal provide_liquidity for %s: %w", dest, err)
		}
		messages = append(messages, msgJSON)
	}

	if _, err := w.driver.Enqueue(ctx, lendAndProvideLiquidityLbl, messages, nil); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if _, err := w.driver.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}
