package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// errVaultPaused signals the sentry check found the source vault paused;
// runCycle treats it as a reason to skip the rest of the cycle, not a fatal
// worker error.
var errVaultPaused = errors.New("orchestrator: source vault is paused")

var (
	boolType, _    = abi.NewType("bool", "", nil)
	pausedSelector = selector("paused()")
	pauseSelector  = selector("pause()")
)

// selector returns the first four bytes of keccak256(signature), the ABI
// function selector.
func selector(signature string) [4]byte {
	hash := crypto.Keccak256Hash([]byte(signature))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// queryVaultPaused calls the source vault's paused() view function and
// decodes the single bool return.
func (w *Worker) queryVaultPaused(ctx context.Context) (bool, error) {
	out, err := w.evm.QueryContractState(ctx, w.addrs.SourceVault, pausedSelector[:])
	if err != nil {
		return false, fmt.Errorf("query vault paused: %w", err)
	}
	args := abi.Arguments{{Type: boolType}}
	vals, err := args.Unpack(out)
	if err != nil {
		return false, fmt.Errorf("decode paused() result: %w", err)
	}
	paused, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("decode paused() result: unexpected type %T", vals[0])
	}
	return paused, nil
}

// pauseVault submits a corrective pause() transaction against the source
// vault, used by the update_rate phase when the rate guard rejects a
// computed rate (spec.md §4.G: "corrective: pause the vault on-chain").
func (w *Worker) pauseVault(ctx context.Context) error {
	_, err := w.evm.Execute(ctx, w.addrs.SourceVault, pauseSelector[:], nil)
	if err != nil {
		return fmt.Errorf("pause vault: %w", err)
	}
	return nil
}
