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
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/withdraw/controller"
)

// fakeEVM is a minimal in-memory stand-in for evmclient.Client used across
// orchestrator phase tests.
type fakeEVM struct {
	balances      map[string]*big.Int
	contractReads map[string][]byte // keyed by string(calldata)
	executed      []executedCall
	executeErr    error
}

type executedCall struct {
	addr     common.Address
	calldata []byte
}

func newFakeEVM() *fakeEVM {
	return &fakeEVM{balances: map[string]*big.Int{}, contractReads: map[string][]byte{}}
}

func (f *fakeEVM) QueryBalance(ctx context.Context, account common.Address, denom string) (*big.Int, error) {
	if b, ok := f.balances[account.Hex()]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeEVM) QueryContractState(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error) {
	return f.contractReads[string(calldata)], nil
}

func (f *fakeEVM) Execute(ctx context.Context, addr common.Address, calldata []byte, value *big.Int) (common.Hash, error) {
	if f.executeErr != nil {
		return common.Hash{}, f.executeErr
	}
	f.executed = append(f.executed, executedCall{addr: addr, calldata: calldata})
	return common.Hash{}, nil
}

func (f *fakeEVM) GetTxReceipt(ctx context.Context, handle common.Hash) (*gethtypes.Receipt, error) {
	return &gethtypes.Receipt{Status: 1}, nil
}

func (f *fakeEVM) PollUntilBalance(ctx context.Context, account common.Address, denom string, target *big.Int, interval time.Duration, attempts int) (*big.Int, error) {
	return f.QueryBalance(ctx, account, denom)
}

// fakeCosmos is a minimal in-memory stand-in for cosmosclient.Client.
type fakeCosmos struct {
	balances      map[string]sdkmath.Int
	contractReads map[string][]byte // keyed by string(queryMsg)
}

func newFakeCosmos() *fakeCosmos {
	return &fakeCosmos{balances: map[string]sdkmath.Int{}, contractReads: map[string][]byte{}}
}

func (f *fakeCosmos) QueryBalance(ctx context.Context, account sdk.AccAddress, denom string) (sdkmath.Int, error) {
	if b, ok := f.balances[account.String()+denom]; ok {
		return b, nil
	}
	return sdkmath.ZeroInt(), nil
}

func (f *fakeCosmos) QueryContractState(ctx context.Context, contract string, queryMsg []byte) ([]byte, error) {
	return f.contractReads[string(queryMsg)], nil
}

func (f *fakeCosmos) PollUntilBalance(ctx context.Context, account sdk.AccAddress, denom string, target sdkmath.Int, interval time.Duration, attempts int) (sdkmath.Int, error) {
	return f.QueryBalance(ctx, account, denom)
}

// fakeDriver records every enqueue/tick/execute_zk call without touching
// any chain.
type fakeDriver struct {
	enqueued      []fakeEnqueueCall
	ticks         int
	executeZKCall int
}

type fakeEnqueueCall struct {
	label    string
	messages []json.RawMessage
}

func (f *fakeDriver) Enqueue(ctx context.Context, label string, messages []json.RawMessage, ttl *uint64) (string, error) {
	f.enqueued = append(f.enqueued, fakeEnqueueCall{label: label, messages: messages})
	return "tx", nil
}

func (f *fakeDriver) Tick(ctx context.Context) (string, error) {
	f.ticks++
	return "tx", nil
}

func (f *fakeDriver) ExecuteZK(ctx context.Context, label string, program, domain coprocessor.Encoded) (string, error) {
	f.executeZKCall++
	return "tx", nil
}

// fakeAccounting returns a fixed total.
type fakeAccounting struct {
	total sdkmath.Int
	err   error
}

func (f fakeAccounting) TotalDepositAssets(ctx context.Context) (sdkmath.Int, error) {
	return f.total, f.err
}

// fakeCoprocessor records every prove call.
type fakeCoprocessor struct {
	resp  coprocessor.ProofResp
	err   error
	calls int
}

func (f *fakeCoprocessor) Prove(ctx context.Context, program coprocessor.ProgramID, witness any) (coprocessor.ProofResp, error) {
	f.calls++
	return f.resp, f.err
}

// fakeIndexer returns a fixed event list regardless of start.
type fakeIndexer struct {
	events       []indexer.WithdrawEvent
	lastStartArg *uint64
}

func (f *fakeIndexer) QueryWithdrawRequests(ctx context.Context, start *uint64, includeUnfinalized bool) ([]indexer.WithdrawEvent, error) {
	f.lastStartArg = start
	return f.events, nil
}

// fakeController returns a fixed bundle for any withdraw id.
type fakeController struct {
	bundle controller.Bundle
	err    error
	calls  int
}

func (f *fakeController) Collect(ctx context.Context, withdrawID uint64, blockNumber *big.Int) (controller.Bundle, error) {
	f.calls++
	return f.bundle, f.err
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
