package proof

import (
	"math/big"
	"testing"

	vmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/prooftest"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

func trimLeadingZeros(word [32]byte) []byte {
	i := 0
	for i < len(word) && word[i] == 0 {
		i++
	}
	return word[i:]
}

// fixture builds a self-consistent (state_root, account claim, storage
// witness, WithdrawRequest) tuple for a given receiver string, mirroring
// spec.md §8 scenarios 1 (short-string receiver) and 2 (long-string
// receiver).
type fixture struct {
	stateRoot    common.Hash
	accountAddr  common.Address
	nonce        uint64
	balance      *big.Int
	storageRoot  common.Hash
	codeHash     common.Hash
	mptWitness   types.MPTWitness
	withdrawID   uint64
	withdraw     types.WithdrawRequest
	storageSlots *prooftest.Builder
}

func buildFixture(t *testing.T, id uint64, receiver string) fixture {
	t.Helper()

	owner := common.HexToAddress("0x510c2C1b2c2f2D0e0d57E7fA8e03e7F1a3b4e8dc")
	req := types.WithdrawRequest{
		ID:             id,
		Owner:          owner,
		RedemptionRate: vmath.NewInt(0x49e88a0),
		SharesAmount:   vmath.NewInt(0x26ab),
		Receiver:       receiver,
	}

	storageTrie := prooftest.New()
	for _, slot := range expectedSlots(id, req) {
		value, err := rlp.EncodeToBytes(trimLeadingZeros(slot.want))
		require.NoError(t, err)
		storageTrie.Insert(slot.key, value)
	}
	storageRoot := storageTrie.Root()

	accountAddr := common.HexToAddress("0x0BADc0ffee0000000000000000000000000000")
	nonce := uint64(3)
	balance := big.NewInt(1234)
	codeHash := crypto.Keccak256Hash([]byte("vault-bytecode"))

	acc := gethtypes.StateAccount{
		Nonce:    nonce,
		Balance:  uint256.MustFromBig(balance),
		Root:     storageRoot,
		CodeHash: codeHash.Bytes(),
	}
	accEncoded, err := rlp.EncodeToBytes(&acc)
	require.NoError(t, err)

	accountTrie := prooftest.New()
	accountKey := crypto.Keccak256Hash(accountAddr.Bytes())
	accountTrie.Insert(accountKey, accEncoded)
	stateRoot := accountTrie.Root()

	var storageProofs []types.StorageSlotProof
	for _, slot := range expectedSlots(id, req) {
		storageProofs = append(storageProofs, types.StorageSlotProof{
			Key:   slot.key,
			Value: mustEncodeTrimmed(t, slot.want),
			Path:  storageTrie.Proof(slot.key),
		})
	}

	return fixture{
		stateRoot:   stateRoot,
		accountAddr: accountAddr,
		nonce:       nonce,
		balance:     balance,
		storageRoot: storageRoot,
		codeHash:    codeHash,
		mptWitness: types.MPTWitness{
			StateRoot:     stateRoot,
			AccountProof:  accountTrie.Proof(accountKey),
			StorageProofs: storageProofs,
		},
		withdrawID: id,
		withdraw:   req,
	}
}

func mustEncodeTrimmed(t *testing.T, word [32]byte) []byte {
	t.Helper()
	b, err := rlp.EncodeToBytes(trimLeadingZeros(word))
	require.NoError(t, err)
	return b
}

func TestVerifyAccount_Accepts(t *testing.T) {
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	err := VerifyAccount(f.mptWitness, AccountClaim{
		Address:     f.accountAddr,
		Nonce:       f.nonce,
		Balance:     f.balance,
		StorageRoot: f.storageRoot,
		CodeHash:    f.codeHash,
	})
	require.NoError(t, err)
}

func TestVerifyAccount_RejectsWrongStateRoot(t *testing.T) {
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	f.mptWitness.StateRoot = common.HexToHash("0xdeadbeef")
	err := VerifyAccount(f.mptWitness, AccountClaim{
		Address:     f.accountAddr,
		Nonce:       f.nonce,
		Balance:     f.balance,
		StorageRoot: f.storageRoot,
		CodeHash:    f.codeHash,
	})
	require.Error(t, err)
}

func TestVerifyWithdrawRequestStorage_ShortReceiver_Accepts(t *testing.T) {
	// spec.md §8 scenario 1.
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	require.Len(t, f.withdraw.Receiver, 43)
	err := VerifyWithdrawRequestStorage(f.mptWitness, f.storageRoot, f.withdrawID, f.withdraw)
	require.NoError(t, err)
}

func TestVerifyWithdrawRequestStorage_LongReceiver_Accepts(t *testing.T) {
	// spec.md §8 scenario 2.
	receiver := "neutron1m2emc93m9gpwgsrsf2vylv9xvgqh654630v7dfrhrkmr5slly53spg85wv"
	f := buildFixture(t, 1, receiver)
	require.Len(t, f.withdraw.Receiver, 64)
	err := VerifyWithdrawRequestStorage(f.mptWitness, f.storageRoot, f.withdrawID, f.withdraw)
	require.NoError(t, err)
}

func TestVerifyWithdrawRequestStorage_RejectsAlteredValue(t *testing.T) {
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	// Alter the claimed value of the first storage proof without touching
	// its MPT path: the trie-proven value and the claimed value diverge.
	f.mptWitness.StorageProofs[0].Value = []byte{0xff, 0xff}
	err := VerifyWithdrawRequestStorage(f.mptWitness, f.storageRoot, f.withdrawID, f.withdraw)
	require.Error(t, err)
}

func TestVerifyWithdrawRequestStorage_RejectsWrongStorageRoot(t *testing.T) {
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	err := VerifyWithdrawRequestStorage(f.mptWitness, common.HexToHash("0xbad"), f.withdrawID, f.withdraw)
	require.Error(t, err)
}

func TestVerifyWithdrawRequestStorage_RejectsInconsistentReceiverLength(t *testing.T) {
	f := buildFixture(t, 0, "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8a")
	// Mutate the decoded request's receiver after the witness was built
	// against the original string: the length-indicator slot no longer
	// matches what expectedSlots derives for the new receiver.
	mutated := f.withdraw
	mutated.Receiver = "neutron1z8qjsmtjxcd36j0la2rs2rfstf5nxmady2hx8aXXXX"
	err := VerifyWithdrawRequestStorage(f.mptWitness, f.storageRoot, f.withdrawID, mutated)
	require.Error(t, err)
}
