package controller

import (
	"context"
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

type fakeEVM struct {
	raw         []byte
	witness     types.MPTWitness
	nonce       uint64
	balance     *big.Int
	storageRoot common.Hash
	codeHash    common.Hash
	gotKeys     []common.Hash
	queryErr    error
	proofErr    error
}

func (f *fakeEVM) QueryContractState(_ context.Context, _ common.Address, _ []byte) ([]byte, error) {
	return f.raw, f.queryErr
}

func (f *fakeEVM) EthGetProof(_ context.Context, _ common.Address, keys []common.Hash, _ *big.Int) (types.MPTWitness, uint64, *big.Int, common.Hash, common.Hash, error) {
	f.gotKeys = keys
	return f.witness, f.nonce, f.balance, f.storageRoot, f.codeHash, f.proofErr
}

func TestController_Collect_AssemblesBundle(t *testing.T) {
	req := types.WithdrawRequest{
		ID:             7,
		Owner:          common.HexToAddress("0xabc0000000000000000000000000000000000a"),
		RedemptionRate: sdkmath.NewInt(100_000_000),
		SharesAmount:   sdkmath.NewInt(500),
		Receiver:       "neutron1shortreceiver",
	}
	encoded, err := types.EncodeWithdrawRequest(req)
	require.NoError(t, err)

	wantWitness := types.MPTWitness{StateRoot: common.HexToHash("0x01")}
	evm := &fakeEVM{
		// eth_call's return omits the leading 32-byte tuple offset.
		raw:         encoded[32:],
		witness:     wantWitness,
		nonce:       1,
		balance:     big.NewInt(0),
		storageRoot: common.HexToHash("0x02"),
		codeHash:    common.HexToHash("0x03"),
	}

	ctrl := NewController(evm, common.HexToAddress("0xaa01700000000000000000000000000000000a"))
	bundle, err := ctrl.Collect(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Equal(t, req.ID, bundle.Request.ID)
	require.Equal(t, req.Receiver, bundle.Request.Receiver)
	require.Equal(t, wantWitness, bundle.Witness)
	require.Equal(t, common.HexToHash("0x02"), bundle.StorageRoot)
	require.Equal(t, common.HexToHash("0x03"), bundle.CodeHash)

	wantKeys := types.StorageKeySet(7, len(req.Receiver), crypto.Keccak256Hash)
	require.Equal(t, wantKeys, evm.gotKeys)
}

func TestController_Collect_RejectsMismatchedID(t *testing.T) {
	req := types.WithdrawRequest{
		ID:             9,
		Owner:          common.Address{},
		RedemptionRate: sdkmath.NewInt(1),
		SharesAmount:   sdkmath.NewInt(1),
		Receiver:       "r",
	}
	encoded, err := types.EncodeWithdrawRequest(req)
	require.NoError(t, err)

	evm := &fakeEVM{raw: encoded[32:]}
	ctrl := NewController(evm, common.Address{})
	_, err = ctrl.Collect(context.Background(), 7, nil)
	require.Error(t, err)
}
