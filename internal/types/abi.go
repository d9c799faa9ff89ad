package types

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// withdrawRequestArguments builds the ABI Arguments for the tuple returned
// by OneWayVault.withdrawRequests(uint64):
// (uint64 id, address owner, uint256 redemptionRate, uint256 sharesAmount, string receiver)
// matching the named fields in spec.md §3 and §6.
func withdrawRequestArguments() (abi.Arguments, error) {
	t, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "id", Type: "uint64"},
		{Name: "owner", Type: "address"},
		{Name: "redemptionRate", Type: "uint256"},
		{Name: "sharesAmount", Type: "uint256"},
		{Name: "receiver", Type: "string"},
	})
	if err != nil {
		return nil, fmt.Errorf("build withdrawRequest tuple type: %w", err)
	}
	return abi.Arguments{{Type: t}}, nil
}

// withdrawRequestRaw mirrors the anonymous struct abi.Unpack produces for
// the tuple above; DecodeWithdrawRequest copies the unpacked value into it
// with abi.ConvertType, so its field order and names must match the tuple
// components.
type withdrawRequestRaw struct {
	Id             uint64
	Owner          common.Address
	RedemptionRate *big.Int
	SharesAmount   *big.Int
	Receiver       string
}

// EncodeWithdrawRequest ABI-encodes a WithdrawRequest the same way
// `eth_call` would return it from OneWayVault.withdrawRequests(uint64),
// head-ful (i.e. with the leading 32-byte tuple offset `eth_call` omits).
func EncodeWithdrawRequest(w WithdrawRequest) ([]byte, error) {
	args, err := withdrawRequestArguments()
	if err != nil {
		return nil, err
	}
	return args.Pack(withdrawRequestRaw{
		Id:             w.ID,
		Owner:          w.Owner,
		RedemptionRate: w.RedemptionRate.BigInt(),
		SharesAmount:   w.SharesAmount.BigInt(),
		Receiver:       w.Receiver,
	})
}

// DecodeWithdrawRequest ABI-decodes the head-ful tuple bytes (i.e. after
// synthesizing the 32-byte offset prefix eth_call's raw response omits, per
// spec.md §4.I step 2) back into a WithdrawRequest.
func DecodeWithdrawRequest(encoded []byte) (WithdrawRequest, error) {
	args, err := withdrawRequestArguments()
	if err != nil {
		return WithdrawRequest{}, err
	}
	unpacked, err := args.Unpack(encoded)
	if err != nil {
		return WithdrawRequest{}, fmt.Errorf("decode withdraw request: %w", err)
	}
	if len(unpacked) != 1 {
		return WithdrawRequest{}, fmt.Errorf("decode withdraw request: expected 1 value, got %d", len(unpacked))
	}
	raw, ok := abi.ConvertType(unpacked[0], new(withdrawRequestRaw)).(*withdrawRequestRaw)
	if !ok {
		return WithdrawRequest{}, fmt.Errorf("decode withdraw request: unexpected decoded type %T", unpacked[0])
	}
	return WithdrawRequest{
		ID:             raw.Id,
		Owner:          raw.Owner,
		RedemptionRate: math.NewIntFromBigInt(raw.RedemptionRate),
		SharesAmount:   math.NewIntFromBigInt(raw.SharesAmount),
		Receiver:       raw.Receiver,
	}, nil
}

// EncodeWithdrawRequestsCall builds the calldata for
// OneWayVault.withdrawRequests(uint64 id): the 4-byte selector
// keccak256("withdrawRequests(uint64)")[:4] followed by id ABI-encoded as a
// single uint64 argument, per spec.md §4.I step 1 and §6.
func EncodeWithdrawRequestsCall(id uint64, keccak func([]byte) common.Hash) ([]byte, error) {
	uint64Type, err := abi.NewType("uint64", "", nil)
	if err != nil {
		return nil, fmt.Errorf("build uint64 arg type: %w", err)
	}
	args := abi.Arguments{{Type: uint64Type}}
	packed, err := args.Pack(id)
	if err != nil {
		return nil, fmt.Errorf("pack withdrawRequests argument: %w", err)
	}
	selector := keccak([]byte("withdrawRequests(uint64)")).Bytes()[:4]
	return append(append([]byte{}, selector...), packed...), nil
}

// PrependOffset synthesizes the leading 32-byte head offset that
// abi.Arguments.Unpack expects but that a raw eth_call return for a single
// top-level tuple omits, per spec.md §4.I step 2.
func PrependOffset(data []byte) []byte {
	head := make([]byte, 32)
	head[31] = 0x20
	return append(head, data...)
}

// MappingSlot is the fixed storage slot of the withdrawRequests mapping in
// the vault contract's layout.
const MappingSlot = 0

// BaseStorageSlot computes s = keccak256(id_be ∥ mapping_slot_be), the base
// slot of withdrawRequests[id], per spec.md §4.B / §4.I. keccak is injected
// so this package does not need to depend on go-ethereum/crypto directly.
func BaseStorageSlot(id uint64, keccak func([]byte) common.Hash) common.Hash {
	var idBE, slotBE [32]byte
	binary.BigEndian.PutUint64(idBE[24:], id)
	binary.BigEndian.PutUint64(slotBE[24:], MappingSlot)
	buf := make([]byte, 0, 64)
	buf = append(buf, idBE[:]...)
	buf = append(buf, slotBE[:]...)
	return keccak(buf)
}

// StorageKeySet computes the full set of storage keys a withdrawRequests[id]
// entry occupies: the four base slots s, s+1, s+2, s+3, plus — if
// receiverLen is 32 bytes or more — the data tail slots at
// keccak256(s+3) + i for i in 0..ceil(receiverLen/32)-1, per spec.md §4.I
// step 3.
func StorageKeySet(id uint64, receiverLen int, keccak func([]byte) common.Hash) []common.Hash {
	base := BaseStorageSlot(id, keccak)
	keys := []common.Hash{base, addWord(base, 1), addWord(base, 2), addWord(base, 3)}

	if receiverLen >= 32 {
		tailBase := keccak(keys[3].Bytes())
		numTail := (receiverLen + 31) / 32
		for i := 0; i < numTail; i++ {
			keys = append(keys, addWord(tailBase, uint64(i)))
		}
	}
	return keys
}

// addWord adds delta to base, treating both as big-endian 32-byte words.
func addWord(base common.Hash, delta uint64) common.Hash {
	i := new(big.Int).SetBytes(base.Bytes())
	i.Add(i, new(big.Int).SetUint64(delta))
	var out common.Hash
	b := i.Bytes()
	copy(out[32-len(b):], b)
	return out
}
