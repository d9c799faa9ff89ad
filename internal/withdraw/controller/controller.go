// Package controller implements component I of spec.md §4.I: the
// witness-assembly step that runs outside the zk coprocessor. Given a
// withdraw ID it reads the source vault's pending request, derives the
// storage-slot set the request occupies, and fetches the MPT account and
// storage proofs backing it, packaging the result as the bundle component H
// (internal/withdraw/circuit) re-verifies inside the coprocessor.
package controller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

// EVMReader is the subset of evmclient.Client the controller depends on.
type EVMReader interface {
	QueryContractState(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error)
	EthGetProof(ctx context.Context, addr common.Address, keys []common.Hash, blockNumber *big.Int) (witness types.MPTWitness, nonce uint64, balance *big.Int, storageRoot, codeHash common.Hash, err error)
}

// Bundle is the witness the circuit (component H) re-verifies: the decoded
// request, the MPT proof over it, and the account-level claim the proof is
// checked against.
type Bundle struct {
	Request      types.WithdrawRequest
	Witness      types.MPTWitness
	AccountNonce uint64
	AccountBal   *big.Int
	StorageRoot  common.Hash
	CodeHash     common.Hash
}

// Controller is component I.
type Controller struct {
	evm       EVMReader
	vaultAddr common.Address
}

// NewController builds a Controller against vaultAddr, the source vault
// contract whose withdrawRequests mapping is being proven.
func NewController(evm EVMReader, vaultAddr common.Address) *Controller {
	return &Controller{evm: evm, vaultAddr: vaultAddr}
}

// Collect runs all four steps of spec.md §4.I for withdrawID against
// blockNumber (nil means "latest"): read the request, ABI-decode it,
// compute its storage-slot set, and fetch the account-and-storage MPT proof
// over that set.
func (c *Controller) Collect(ctx context.Context, withdrawID uint64, blockNumber *big.Int) (Bundle, error) {
	calldata, err := types.EncodeWithdrawRequestsCall(withdrawID, crypto.Keccak256Hash)
	if err != nil {
		return Bundle{}, fmt.Errorf("encode withdrawRequests call: %w", err)
	}

	raw, err := c.evm.QueryContractState(ctx, c.vaultAddr, calldata)
	if err != nil {
		return Bundle{}, fmt.Errorf("query withdrawRequests(%d): %w", withdrawID, err)
	}

	req, err := types.DecodeWithdrawRequest(types.PrependOffset(raw))
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: decode withdrawRequests(%d): %v", errs.Deserialize, withdrawID, err)
	}
	if req.ID != withdrawID {
		return Bundle{}, fmt.Errorf("%w: withdrawRequests(%d) returned id %d", errs.ProofInvalid, withdrawID, req.ID)
	}

	keys := types.StorageKeySet(withdrawID, len(req.Receiver), crypto.Keccak256Hash)

	witness, nonce, balance, storageRoot, codeHash, err := c.evm.EthGetProof(ctx, c.vaultAddr, keys, blockNumber)
	if err != nil {
		return Bundle{}, fmt.Errorf("eth_getProof for withdraw %d: %w", withdrawID, err)
	}

	return Bundle{
		Request:      req,
		Witness:      witness,
		AccountNonce: nonce,
		AccountBal:   balance,
		StorageRoot:  storageRoot,
		CodeHash:     codeHash,
	}, nil
}
