package evmclient

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func TestEncodeTrimmedWord_RoundTripsThroughRLP(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 256, 1_000_000} {
		encoded, err := encodeTrimmedWord(big.NewInt(v))
		require.NoError(t, err)

		var raw []byte
		require.NoError(t, rlp.DecodeBytes(encoded, &raw))
		require.Equal(t, big.NewInt(v), new(big.Int).SetBytes(raw))
	}
}
