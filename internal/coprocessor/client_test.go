package coprocessor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

func TestClient_Prove_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req proveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, ClearingQueueCircuit, req.ProgramID)

		var witness ClearingQueueWitness
		require.NoError(t, json.Unmarshal(req.Input, &witness))
		require.Equal(t, uint64(42), witness.WithdrawRequestID)

		resp := ProofResp{
			Program: Encoded{
				ProofB64:        base64.StdEncoding.EncodeToString([]byte("program-proof")),
				PublicInputsB64: base64.StdEncoding.EncodeToString([]byte("program-inputs")),
			},
			Domain: Encoded{
				ProofB64:        base64.StdEncoding.EncodeToString([]byte("domain-proof")),
				PublicInputsB64: base64.StdEncoding.EncodeToString([]byte("domain-inputs")),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	resp, err := c.Prove(context.Background(), ClearingQueueCircuit, ClearingQueueWitness{WithdrawRequestID: 42})
	require.NoError(t, err)

	proof, inputs, err := resp.Program.Decode()
	require.NoError(t, err)
	require.Equal(t, []byte("program-proof"), proof)
	require.Equal(t, []byte("program-inputs"), inputs)
}

func TestClient_Prove_ProverRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	_, err := c.Prove(context.Background(), ClearingQueueCircuit, ClearingQueueWitness{WithdrawRequestID: 1})
	require.ErrorIs(t, err, errs.ProverRejected)
}

func TestClient_Prove_Pending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), zap.NewNop())
	_, err := c.Prove(context.Background(), ClearingQueueCircuit, ClearingQueueWitness{WithdrawRequestID: 1})
	require.ErrorIs(t, err, errs.Pending)
}
