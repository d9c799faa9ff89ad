package cosmosclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/protowire"
)

// querySmartContractStateRequest/Response mirror
// cosmwasm.wasm.v1.Query/SmartContractState, hand-encoded for the same
// reason internal/authz.MsgExecuteContract is: avoiding a full
// github.com/CosmWasm/wasmd dependency for a two-field request and a
// one-field response.
type querySmartContractStateRequest struct {
	Address   string
	QueryData []byte
}

func (r *querySmartContractStateRequest) Reset()         { *r = querySmartContractStateRequest{} }
func (r *querySmartContractStateRequest) String() string { return fmt.Sprintf("QuerySmartContractStateRequest{address=%s}", r.Address) }
func (r *querySmartContractStateRequest) ProtoMessage()  {}

func (r *querySmartContractStateRequest) Marshal() ([]byte, error) {
	var out []byte
	out = protowire.AppendString(out, 1, r.Address)
	out = protowire.AppendBytes(out, 2, r.QueryData)
	return out, nil
}

func (r *querySmartContractStateRequest) Unmarshal(data []byte) error {
	*r = querySmartContractStateRequest{}
	for len(data) > 0 {
		fieldNum, _, n, err := protowire.DecodeTag(data)
		if err != nil {
			return err
		}
		data = data[n:]
		value, n, err := protowire.DecodeLengthDelimited(data)
		if err != nil {
			return err
		}
		data = data[n:]
		switch fieldNum {
		case 1:
			r.Address = string(value)
		case 2:
			r.QueryData = append([]byte{}, value...)
		}
	}
	return nil
}

type querySmartContractStateResponse struct {
	Data []byte
}

func (r *querySmartContractStateResponse) Reset()         { *r = querySmartContractStateResponse{} }
func (r *querySmartContractStateResponse) String() string { return fmt.Sprintf("QuerySmartContractStateResponse{%d bytes}", len(r.Data)) }
func (r *querySmartContractStateResponse) ProtoMessage()  {}

func (r *querySmartContractStateResponse) Marshal() ([]byte, error) {
	var out []byte
	out = protowire.AppendBytes(out, 1, r.Data)
	return out, nil
}

func (r *querySmartContractStateResponse) Unmarshal(data []byte) error {
	*r = querySmartContractStateResponse{}
	for len(data) > 0 {
		fieldNum, _, n, err := protowire.DecodeTag(data)
		if err != nil {
			return err
		}
		data = data[n:]
		value, n, err := protowire.DecodeLengthDelimited(data)
		if err != nil {
			return err
		}
		data = data[n:]
		if fieldNum == 1 {
			r.Data = append([]byte{}, value...)
		}
	}
	return nil
}

const smartContractStateMethod = "/cosmwasm.wasm.v1.Query/SmartContractState"

// querySmartContractState invokes the wasm module's smart query endpoint
// directly against conn, bypassing a generated QueryClient.
func querySmartContractState(ctx context.Context, conn grpc.ClientConnInterface, contract string, queryMsg []byte) ([]byte, error) {
	req := &querySmartContractStateRequest{Address: contract, QueryData: queryMsg}
	resp := &querySmartContractStateResponse{}
	if err := conn.Invoke(ctx, smartContractStateMethod, req, resp); err != nil {
		return nil, fmt.Errorf("smart query %s: %w", contract, err)
	}
	return resp.Data, nil
}
