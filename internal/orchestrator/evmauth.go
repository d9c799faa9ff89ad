package orchestrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	executeZKMessageSelector = selector("executeZKMessage(bytes,bytes,bytes)")
	totalSupplySelector      = selector("totalSupply()")
	redemptionRateSelector   = selector("redemptionRate()")
	updateRateSelector       = selector("update(uint256)")
)

var (
	bytesType, _   = abi.NewType("bytes", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
)

var executeZKMessageArgs = abi.Arguments{{Type: bytesType}, {Type: bytesType}, {Type: bytesType}}

// encodeExecuteZKMessage builds the calldata for the source-chain
// Authorization contract's executeZKMessage(bytes inputs, bytes
// program_proof, bytes domain_proof), per spec.md §4.G/§6: the deposit
// phase's on-chain entry point for a proven IBC-Eureka route.
func encodeExecuteZKMessage(inputs, programProof, domainProof []byte) ([]byte, error) {
	packed, err := executeZKMessageArgs.Pack(inputs, programProof, domainProof)
	if err != nil {
		return nil, fmt.Errorf("pack executeZKMessage args: %w", err)
	}
	return append(executeZKMessageSelector[:], packed...), nil
}
