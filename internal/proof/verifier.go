// Package proof implements component B of spec.md §4.B: verifying a
// Merkle-Patricia Trie account-and-storage proof against a trusted state
// root and checking it against the fixed withdrawRequests[id] storage
// layout of the source vault contract.
package proof

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
)

// AccountClaim is the claimed account-level state the witness must prove.
type AccountClaim struct {
	Address      common.Address
	Nonce        uint64
	Balance      *big.Int
	StorageRoot  common.Hash
	CodeHash     common.Hash
}

// VerifyAccount checks step (1) of spec.md §4.B: the MPT proof at key
// keccak256(account_addr) rooted at state_root yields the RLP encoding of
// (nonce, balance, storage_root, code_hash).
func VerifyAccount(witness types.MPTWitness, claim AccountClaim) error {
	db := memorydb.New()
	for _, node := range witness.AccountProof {
		db.Put(crypto.Keccak256(node), node)
	}

	key := crypto.Keccak256(claim.Address.Bytes())
	val, err := gethtrie.VerifyProof(witness.StateRoot, key, db)
	if err != nil {
		return fmt.Errorf("%w: account_proof: %v", errs.ProofInvalid, err)
	}

	var acc gethtypes.StateAccount
	if err := rlp.DecodeBytes(val, &acc); err != nil {
		return fmt.Errorf("%w: account_decode: %v", errs.ProofInvalid, err)
	}

	switch {
	case acc.Nonce != claim.Nonce:
		return errs.ProofInvalidAt("account.nonce")
	case acc.Balance.ToBig().Cmp(claim.Balance) != 0:
		return errs.ProofInvalidAt("account.balance")
	case acc.Root != claim.StorageRoot:
		return errs.ProofInvalidAt("account.storage_root")
	case !bytes.Equal(acc.CodeHash, claim.CodeHash.Bytes()):
		return errs.ProofInvalidAt("account.code_hash")
	}
	return nil
}

// VerifyWithdrawRequestStorage checks steps (2) and (3) of spec.md §4.B:
// for the fixed slot layout of a withdrawRequests[id] entry, the four base
// slots plus any string-tail slots MPT-verify under storageRoot to the
// values expected from req.
func VerifyWithdrawRequestStorage(witness types.MPTWitness, storageRoot common.Hash, id uint64, req types.WithdrawRequest) error {
	expected := expectedSlots(id, req)

	byKey := make(map[common.Hash]types.StorageSlotProof, len(witness.StorageProofs))
	for _, sp := range witness.StorageProofs {
		byKey[sp.Key] = sp
	}

	for _, slot := range expected {
		sp, ok := byKey[slot.key]
		if !ok {
			return fmt.Errorf("%w: missing storage proof for slot %s (%s)", errs.ProofInvalid, slot.key.Hex(), slot.name)
		}

		db := memorydb.New()
		for _, node := range sp.Path {
			db.Put(crypto.Keccak256(node), node)
		}

		trieKey := crypto.Keccak256(slot.key.Bytes())
		val, err := gethtrie.VerifyProof(storageRoot, trieKey, db)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", errs.ProofInvalid, slot.name, err)
		}
		if !bytes.Equal(val, sp.Value) {
			return fmt.Errorf("%w: %s: claimed value diverges from the value the trie actually proves", errs.ProofInvalid, slot.name)
		}

		var raw []byte
		if err := rlp.DecodeBytes(val, &raw); err != nil {
			return fmt.Errorf("%w: %s: decode: %v", errs.ProofInvalid, slot.name, err)
		}
		var word [32]byte
		copy(word[32-len(raw):], raw)
		if word != slot.want {
			return fmt.Errorf("%w: %s", errs.ProofInvalid, slot.name)
		}
	}
	return nil
}

type expectedSlot struct {
	name string
	key  common.Hash
	want [32]byte
}

// expectedSlots computes the base slot s = keccak256(id_be ∥ mapping_slot_be)
// and every slot that must MPT-verify to reproduce req, per spec.md §4.B:
// slot 0 packs (owner, id); slot 1 is redemption_rate; slot 2 is
// shares_amount; slot 3 is the string-length indicator, with data tail
// slots at keccak256(slot3) + i for receivers of 32 bytes or more.
func expectedSlots(id uint64, req types.WithdrawRequest) []expectedSlot {
	base := types.BaseStorageSlot(id, crypto.Keccak256Hash)

	out := []expectedSlot{
		{name: "slot0_owner_id", key: base, want: packOwnerID(req.Owner, req.ID)},
		{name: "slot1_redemption_rate", key: addSlot(base, 1), want: toWord(req.RedemptionRate.BigInt())},
		{name: "slot2_shares_amount", key: addSlot(base, 2), want: toWord(req.SharesAmount.BigInt())},
	}

	slot3Key := addSlot(base, 3)
	slot3Word, tail := stringSlot(req.Receiver)
	out = append(out, expectedSlot{name: "slot3_receiver_length", key: slot3Key, want: slot3Word})

	if len(tail) > 0 {
		tailBase := crypto.Keccak256Hash(slot3Key.Bytes())
		for i, chunk := range tail {
			out = append(out, expectedSlot{
				name: fmt.Sprintf("receiver_data_%d", i),
				key:  addSlot(tailBase, uint64(i)),
				want: chunk,
			})
		}
	}
	return out
}

// packOwnerID packs (owner, id) into a single 32-byte slot: 4 bytes of zero
// padding, the 20-byte owner address, then the 8-byte big-endian id,
// mirroring solidity's right-to-left storage packing for a
// (uint64 id, address owner, ...) struct where id is declared first and
// therefore occupies the low-order bytes of the shared slot.
func packOwnerID(owner common.Address, id uint64) [32]byte {
	var w [32]byte
	copy(w[4:24], owner.Bytes())
	big.NewInt(0).SetUint64(id).FillBytes(w[24:32])
	return w
}

func toWord(x *big.Int) [32]byte {
	var w [32]byte
	x.FillBytes(w[:])
	return w
}

func addSlot(base common.Hash, delta uint64) common.Hash {
	i := new(big.Int).SetBytes(base.Bytes())
	i.Add(i, new(big.Int).SetUint64(delta))
	var out common.Hash
	b := i.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// stringSlot computes slot 3's word and, for receivers of 32 bytes or more,
// the data tail slots, per spec.md §4.B (3): strings shorter than 32 bytes
// store `bytes ∥ 0* ∥ (2·len)` directly in the slot; longer strings store
// `(2·len + 1)` in the slot and the string data in subsequent slots, the
// last zero-padded.
func stringSlot(s string) ([32]byte, [][32]byte) {
	n := len(s)
	var w [32]byte
	if n < 32 {
		copy(w[:], s)
		w[31] = byte(2 * n)
		return w, nil
	}

	big.NewInt(int64(2*n + 1)).FillBytes(w[:])

	numTail := (n + 31) / 32
	tail := make([][32]byte, numTail)
	for i := 0; i < numTail; i++ {
		start := i * 32
		end := start + 32
		if end > n {
			end = n
		}
		copy(tail[i][:], s[start:end])
	}
	return w, tail
}
