// Package orchestrator implements component G of spec.md §4.G: the phase
// state machine that drives a deposit -> register-obligations -> settle ->
// update-rate cycle, sleeping strategy_timeout between cycles. Phases are
// free functions over a *Worker — the worker struct owns every chain client
// and driver, clients hold no back-reference to it — matching spec.md §9's
// "Cyclic-ish ownership" note and the teacher's preference for small typed
// wrappers threaded explicitly rather than shared global state.
package orchestrator

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/indexer"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/withdraw/controller"
)

// EVMClient is the subset of evmclient.Client the worker depends on.
type EVMClient interface {
	QueryBalance(ctx context.Context, account common.Address, denom string) (*big.Int, error)
	QueryContractState(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error)
	Execute(ctx context.Context, addr common.Address, calldata []byte, value *big.Int) (common.Hash, error)
	GetTxReceipt(ctx context.Context, handle common.Hash) (*gethtypes.Receipt, error)
	PollUntilBalance(ctx context.Context, account common.Address, denom string, target *big.Int, interval time.Duration, attempts int) (*big.Int, error)
}

// CosmosClient is the subset of cosmosclient.Client the worker depends on,
// used for both the destination chain (where the authorization/processor/
// clearing-queue contracts live) and, as a second instance, the
// intermediary ICA chain.
type CosmosClient interface {
	QueryBalance(ctx context.Context, account sdk.AccAddress, denom string) (sdkmath.Int, error)
	QueryContractState(ctx context.Context, contract string, queryMsg []byte) ([]byte, error)
	PollUntilBalance(ctx context.Context, account sdk.AccAddress, denom string, target sdkmath.Int, interval time.Duration, attempts int) (sdkmath.Int, error)
}

// Driver is the subset of authz.Driver the worker depends on.
type Driver interface {
	Enqueue(ctx context.Context, label string, messages []json.RawMessage, ttl *uint64) (string, error)
	Tick(ctx context.Context) (string, error)
	ExecuteZK(ctx context.Context, label string, program, domain coprocessor.Encoded) (string, error)
}

// Accounting is the subset of accounting.Engine the worker depends on.
type Accounting interface {
	TotalDepositAssets(ctx context.Context) (sdkmath.Int, error)
}

// Coprocessor is the subset of coprocessor.Client the worker depends on.
type Coprocessor interface {
	Prove(ctx context.Context, program coprocessor.ProgramID, witness any) (coprocessor.ProofResp, error)
}

// Indexer is the subset of indexer.Client the worker depends on.
type Indexer interface {
	QueryWithdrawRequests(ctx context.Context, start *uint64, includeUnfinalized bool) ([]indexer.WithdrawEvent, error)
}

// WithdrawController is the subset of controller.Controller the worker
// depends on.
type WithdrawController interface {
	Collect(ctx context.Context, withdrawID uint64, blockNumber *big.Int) (controller.Bundle, error)
}

// SkipRouter fetches a skip-route response for an IBC-Eureka transfer of
// amount of the deposit denom, grounded on
// original_source/packages/src/utils/skip.rs: the off-chain strategist
// queries the Skip API, then has the coprocessor prove the response before
// authorizing the transfer on-chain (spec.md §9).
type SkipRouter interface {
	GetRoute(ctx context.Context, amount sdkmath.Int) (json.RawMessage, error)
}

// Addresses is the fixed set of on-chain addresses one strategy needs,
// resolved once from config (spec.md §3's immutable Account Graph plus the
// destination-chain contract addresses of spec.md §6).
type Addresses struct {
	SourceVault         common.Address
	SourceAuthorization common.Address

	Deposit     sdk.AccAddress // destination-chain deposit account
	ICA         sdk.AccAddress // intermediary-chain ICA account the Eureka route lands funds on
	Settlement  sdk.AccAddress
	MarsDeposit sdk.AccAddress

	Authorization string // destination-chain Authorization contract
	Processor     string // destination-chain Processor contract
	ClearingQueue string // destination-chain ClearingQueue library
	MarsCreditMgr string // Mars credit manager contract, queried to value the Mars position
}

// Phase names the worker's current state, per spec.md §4.G: "{Idle,
// Depositing, Registering, Settling, Updating}".
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseSentry      Phase = "sentry"
	PhaseDepositing  Phase = "depositing"
	PhaseRegistering Phase = "registering"
	PhaseSettling    Phase = "settling"
	PhaseUpdating    Phase = "updating"
)

// Worker is component G: the phase orchestrator.
type Worker struct {
	evm          EVMClient
	dest         CosmosClient
	ica          CosmosClient
	driver       Driver
	accounting   Accounting
	coprocessor  Coprocessor
	indexer      Indexer
	controller   WithdrawController
	skipRouter   SkipRouter
	addrs        Addresses
	tunables     types.StrategyTunables
	depositDenom string
	destDenom    string

	// depositSplit and splitOrder govern the deposit phase's fan-out of
	// newly-arrived destination-deposit funds across Mars and the
	// supervaults. splitOrder[0] is always "mars" by convention (it
	// receives any flooring dust, matching
	// SettlementSplitPolicy.Apply's documented behavior) followed by each
	// supervault destination name.
	depositSplit types.SettlementSplitPolicy
	splitOrder   []string

	log *zap.Logger

	phase Phase
}

// NewWorker builds a Worker wired against every dependency it needs for one
// full cycle.
func NewWorker(
	evm EVMClient,
	dest CosmosClient,
	ica CosmosClient,
	driver Driver,
	accounting Accounting,
	coproc Coprocessor,
	idx Indexer,
	ctrl WithdrawController,
	skipRouter SkipRouter,
	addrs Addresses,
	tunables types.StrategyTunables,
	depositDenom, destDenom string,
	depositSplit types.SettlementSplitPolicy,
	splitOrder []string,
	log *zap.Logger,
) *Worker {
	return &Worker{
		evm:          evm,
		dest:         dest,
		ica:          ica,
		driver:       driver,
		accounting:   accounting,
		coprocessor:  coproc,
		indexer:      idx,
		controller:   ctrl,
		skipRouter:   skipRouter,
		addrs:        addrs,
		tunables:     tunables,
		depositDenom: depositDenom,
		destDenom:    destDenom,
		depositSplit: depositSplit,
		splitOrder:   splitOrder,
		log:          log,
		phase:        PhaseIdle,
	}
}

// Phase returns the worker's current phase, for observability.
func (w *Worker) Phase() Phase { return w.phase }

// Run drives the cycle loop forever: sleep(strategy_timeout), then sentry,
// deposit, register-obligations, settle, update-rate, per spec.md §4.G.
// Every phase failure is logged and non-fatal to the worker — "the next
// cycle will re-observe state and resume" — except a cancelled context,
// which stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.tunables.StrategyTimeout):
		}
		w.runCycle(ctx)
	}
}

// runCycle runs exactly one pass of the state machine. A Sentry failure
// skips the remaining phases of this cycle entirely; every other phase is
// independent — a failure in one does not prevent the next from running, so
// a stuck deposit phase never blocks rate updates from catching up once the
// underlying condition clears.
func (w *Worker) runCycle(ctx context.Context) {
	w.phase = PhaseSentry
	if err := w.runSentry(ctx); err != nil {
		w.log.Warn("sentry check failed, skipping cycle", zap.Error(err))
		w.phase = PhaseIdle
		return
	}

	w.phase = PhaseDepositing
	if err := w.runDepositing(ctx); err != nil {
		w.log.Error("depositing phase failed", zap.Error(err))
	}

	w.phase = PhaseRegistering
	if err := w.runRegisterObligations(ctx); err != nil {
		w.log.Error("register_obligations phase failed", zap.Error(err))
	}

	w.phase = PhaseSettling
	if err := w.runSettle(ctx); err != nil {
		w.log.Error("settle phase failed", zap.Error(err))
	}

	w.phase = PhaseUpdating
	if err := w.runUpdateRate(ctx); err != nil {
		w.log.Error("update_rate phase failed", zap.Error(err))
	}

	w.phase = PhaseIdle
}

// runSentry is the supplemented pre-cycle health check (SPEC_FULL.md,
// grounded on original_source's phases/sentry.rs variants): it reads the
// source vault's paused flag before attempting any writes, so a paused
// vault produces one log line per cycle instead of a string of rejected
// transactions.
func (w *Worker) runSentry(ctx context.Context) error {
	paused, err := w.queryVaultPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return errVaultPaused
	}
	return nil
}
