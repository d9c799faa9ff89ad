package evmclient

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// encodeTrimmedWord RLP-encodes x's minimal big-endian representation, the
// same encoding a storage trie leaf holds for a nonzero slot value. This
// lets StorageSlotProof.Value be compared byte-for-byte against whatever
// trie.VerifyProof returns in internal/proof, rather than re-deriving the
// encoding on the verifying side.
func encodeTrimmedWord(x *big.Int) ([]byte, error) {
	return rlp.EncodeToBytes(x.Bytes())
}
