// Package evmclient implements the source-chain half of component A
// (spec.md §4.A): a typed wrapper around go-ethereum's ethclient/rpc
// clients exposing query_balance, query_contract_state, execute,
// poll_until_balance, get_tx_receipt, eth_call, eth_getProof and
// get_latest_block, grounded on the teacher's geth-integration style in
// abigen/ and e2e/.../chainconfig/ethereum.go.
package evmclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

// Client wraps the source-chain (Ethereum) RPC endpoint.
type Client struct {
	eth        *ethclient.Client
	rpc        *rpc.Client
	signer     *ecdsa.PrivateKey
	chainID    *big.Int
	log        *zap.Logger
	maxRetries uint
	pollTO     time.Duration
}

// Dial connects to rpcURL and resolves the chain ID.
func Dial(ctx context.Context, rpcURL string, signer *ecdsa.PrivateKey, log *zap.Logger) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", errs.Transport, rpcURL, err)
	}
	eth := ethclient.NewClient(rc)
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", errs.Transport, err)
	}
	return &Client{eth: eth, rpc: rc, signer: signer, chainID: chainID, log: log, maxRetries: 5, pollTO: 2 * time.Second}, nil
}

// withRetry retries fn on Transport-kind failures with bounded exponential
// backoff; every other caller-visible error kind is returned immediately,
// per spec.md §4.A: "Retry is the caller's responsibility except
// Transport".
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errs.Transport) }),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("evm client retrying transport error", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
}

// QueryBalance returns the native balance of account. denom is accepted for
// interface symmetry with the Cosmos client but ignored: the EVM client
// only ever reports the chain's native asset here; ERC-20 balances are read
// via QueryContractState against the token contract.
func (c *Client) QueryBalance(ctx context.Context, account common.Address, _ string) (*big.Int, error) {
	var out *big.Int
	err := c.withRetry(ctx, func() error {
		bal, err := c.eth.BalanceAt(ctx, account, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.Transport, err)
		}
		out = bal
		return nil
	})
	return out, err
}

// QueryContractState performs an eth_call against addr with the given
// ABI-encoded calldata and returns the raw return data.
func (c *Client) QueryContractState(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error) {
	var out []byte
	err := c.withRetry(ctx, func() error {
		res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: calldata}, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.Transport, err)
		}
		out = res
		return nil
	})
	return out, err
}

// Execute signs and sends a transaction to addr with calldata and value,
// returning its hash. Submission itself is not retried: a rejected/dropped
// transaction is a TxRejected error, not a Transport one, since resending
// blindly risks a double-submission under certain mempool conditions.
func (c *Client) Execute(ctx context.Context, addr common.Address, calldata []byte, value *big.Int) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, fmt.Errorf("%w: no signer configured for execute", errs.Config)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", errs.Config, err)
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}

	from := opts.From
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: nonce: %v", errs.Transport, err)
	}
	gasTip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: gas tip: %v", errs.Transport, err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: head: %v", errs.Transport, err)
	}
	gasFeeCap := new(big.Int).Add(gasTip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &addr, Data: calldata, Value: value})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: estimate gas: %v", errs.Transport, err)
	}

	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: gasTip,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &addr,
		Value:     value,
		Data:      calldata,
	})
	signed, err := opts.Signer(from, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign: %v", errs.Config, err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", errs.TxRejected, err)
	}
	return signed.Hash(), nil
}

// GetTxReceipt returns the receipt for handle, or errs.Transport if it is
// not yet mined. The caller is expected to poll/retry across cycles.
func (c *Client) GetTxReceipt(ctx context.Context, handle common.Hash) (*gethtypes.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.Transport, err)
	}
	return receipt, nil
}

// PollUntilBalance polls QueryBalance until it reaches or exceeds target,
// at most attempts times, interval apart. Returns errs.Timeout if the
// budget is exhausted, per spec.md §4.A and the phase's cancellation model
// (spec.md §5).
func (c *Client) PollUntilBalance(ctx context.Context, account common.Address, denom string, target *big.Int, interval time.Duration, attempts int) (*big.Int, error) {
	var last *big.Int
	for i := 0; i < attempts; i++ {
		bal, err := c.QueryBalance(ctx, account, denom)
		if err != nil {
			return nil, err
		}
		last = bal
		if bal.Cmp(target) >= 0 {
			return bal, nil
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w: %v", errs.Timeout, ctx.Err())
		case <-time.After(interval):
		}
	}
	return last, fmt.Errorf("%w: balance of %s did not reach %s after %d attempts (last observed %s)", errs.Timeout, account.Hex(), target, attempts, last)
}

// GetLatestBlock returns the latest block's number and state root, used as
// the trusted root for MPT proof verification (spec.md §4.A, §4.B).
func (c *Client) GetLatestBlock(ctx context.Context) (uint64, common.Hash, error) {
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, common.Hash{}, fmt.Errorf("%w: %v", errs.Transport, err)
	}
	return head.Number.Uint64(), head.Root, nil
}

// proofResult mirrors the eth_getProof JSON-RPC response shape.
type proofResult struct {
	Address      common.Address  `json:"address"`
	AccountProof []hexutil.Bytes `json:"accountProof"`
	Balance      *hexutil.Big    `json:"balance"`
	CodeHash     common.Hash     `json:"codeHash"`
	Nonce        hexutil.Uint64  `json:"nonce"`
	StorageHash  common.Hash     `json:"storageHash"`
	StorageProof []struct {
		Key   common.Hash     `json:"key"`
		Value *hexutil.Big    `json:"value"`
		Proof []hexutil.Bytes `json:"proof"`
	} `json:"storageProof"`
}

// EthGetProof calls eth_getProof for addr's account and the given storage
// keys at blockNumber (nil means "latest"), and packages the result as an
// MPTWitness plus the account-level fields needed to build the AccountClaim
// that verifies it (spec.md §4.A, §4.I step 4). The witness's StateRoot is
// the root of the same block the proof was taken against, so a caller that
// pins blockNumber gets a witness consistent with a previously observed
// GetLatestBlock root.
func (c *Client) EthGetProof(ctx context.Context, addr common.Address, keys []common.Hash, blockNumber *big.Int) (witness types.MPTWitness, nonce uint64, balance *big.Int, storageRoot common.Hash, codeHash common.Hash, err error) {
	keyStrings := make([]string, len(keys))
	for i, k := range keys {
		keyStrings[i] = k.Hex()
	}
	var res proofResult
	var stateRoot common.Hash
	err = c.withRetry(ctx, func() error {
		// Resolve the header first and request the proof at its number, so a
		// nil blockNumber cannot pair a proof and a root from two blocks.
		header, herr := c.eth.HeaderByNumber(ctx, blockNumber)
		if herr != nil {
			return fmt.Errorf("%w: header for proof block: %v", errs.Transport, herr)
		}
		if err := c.rpc.CallContext(ctx, &res, "eth_getProof", addr, keyStrings, hexutil.EncodeBig(header.Number)); err != nil {
			return fmt.Errorf("%w: eth_getProof: %v", errs.Transport, err)
		}
		stateRoot = header.Root
		return nil
	})
	if err != nil {
		return types.MPTWitness{}, 0, nil, common.Hash{}, common.Hash{}, err
	}

	accountProof := make([][]byte, len(res.AccountProof))
	for i, n := range res.AccountProof {
		accountProof[i] = n
	}

	storageProofs := make([]types.StorageSlotProof, len(res.StorageProof))
	for i, sp := range res.StorageProof {
		path := make([][]byte, len(sp.Proof))
		for j, n := range sp.Proof {
			path[j] = n
		}
		rlpValue, err := encodeTrimmedWord(sp.Value.ToInt())
		if err != nil {
			return types.MPTWitness{}, 0, nil, common.Hash{}, common.Hash{}, fmt.Errorf("%w: %v", errs.Deserialize, err)
		}
		storageProofs[i] = types.StorageSlotProof{Key: sp.Key, Value: rlpValue, Path: path}
	}

	witness = types.MPTWitness{
		StateRoot:     stateRoot,
		AccountProof:  accountProof,
		StorageProofs: storageProofs,
	}
	return witness, uint64(res.Nonce), res.Balance.ToInt(), res.StorageHash, res.CodeHash, nil
}
