package cosmosclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmartContractStateRequestRoundTrip(t *testing.T) {
	req := &querySmartContractStateRequest{
		Address:   "neutron1authz",
		QueryData: []byte(`{"get_library_config":{}}`),
	}
	encoded, err := req.Marshal()
	require.NoError(t, err)

	var decoded querySmartContractStateRequest
	require.NoError(t, decoded.Unmarshal(encoded))
	require.Equal(t, req.Address, decoded.Address)
	require.Equal(t, req.QueryData, decoded.QueryData)
}

func TestSmartContractStateResponseRoundTrip(t *testing.T) {
	resp := &querySmartContractStateResponse{Data: []byte(`{"last_processed_id":41}`)}
	encoded, err := resp.Marshal()
	require.NoError(t, err)

	var decoded querySmartContractStateResponse
	require.NoError(t, decoded.Unmarshal(encoded))
	require.Equal(t, resp.Data, decoded.Data)
}
