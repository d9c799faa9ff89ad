package authz

import (
	"context"
	"encoding/json"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdktx "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

type fakeSubmitter struct {
	contract string
	msg      any
	funds    []sdk.Coin
	handle   string
	err      error

	receipt    *sdktx.GetTxResponse
	receiptErr error
}

func (f *fakeSubmitter) Execute(_ context.Context, contract string, msg any, funds []sdk.Coin) (string, error) {
	f.contract = contract
	f.msg = msg
	f.funds = funds
	return f.handle, f.err
}

func (f *fakeSubmitter) GetTxReceipt(_ context.Context, _ string) (*sdktx.GetTxResponse, error) {
	return f.receipt, f.receiptErr
}

func TestDriver_Enqueue_BuildsSendMsgsAction(t *testing.T) {
	sub := &fakeSubmitter{handle: "tx1"}
	d := NewDriver(sub, "authz1", "proc1", zap.NewNop())

	raw := []json.RawMessage{json.RawMessage(`{"ica_transfer":{}}`)}
	handle, err := d.Enqueue(context.Background(), "ica_transfer", raw, nil)
	require.NoError(t, err)
	require.Equal(t, "tx1", handle)
	require.Equal(t, "authz1", sub.contract)

	encoded, err := json.Marshal(sub.msg)
	require.NoError(t, err)
	require.JSONEq(t, `{"permissionless_action":{"send_msgs":{"label":"ica_transfer","messages":[{"ica_transfer":{}}]}}}`, string(encoded))
}

func TestDriver_Tick_TargetsProcessor(t *testing.T) {
	sub := &fakeSubmitter{handle: "tx2"}
	d := NewDriver(sub, "authz1", "proc1", zap.NewNop())

	handle, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tx2", handle)
	require.Equal(t, "proc1", sub.contract)

	encoded, err := json.Marshal(sub.msg)
	require.NoError(t, err)
	require.JSONEq(t, `{"permissionless_action":{"tick":{}}}`, string(encoded))
}

func TestDriver_ExecuteZK_EncodesBothBundles(t *testing.T) {
	sub := &fakeSubmitter{handle: "tx3"}
	d := NewDriver(sub, "authz1", "proc1", zap.NewNop())

	program := coprocessor.Encoded{ProofB64: "cHJvb2Y=", PublicInputsB64: "aW5wdXRz"}
	domain := coprocessor.Encoded{ProofB64: "ZHByb29m", PublicInputsB64: "ZGlucHV0cw=="}

	handle, err := d.ExecuteZK(context.Background(), "register_obligation", program, domain)
	require.NoError(t, err)
	require.Equal(t, "tx3", handle)
	require.Equal(t, "authz1", sub.contract)

	encoded, err := json.Marshal(sub.msg)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"permissionless_action": {
			"execute_zk_authorization": {
				"label": "register_obligation",
				"message": "aW5wdXRz",
				"proof": "cHJvb2Y=",
				"domain_message": "ZGlucHV0cw==",
				"domain_proof": "ZHByb29m"
			}
		}
	}`, string(encoded))
}

func TestDriver_Enqueue_PropagatesError(t *testing.T) {
	sub := &fakeSubmitter{err: errs.Unauthorized}
	d := NewDriver(sub, "authz1", "proc1", zap.NewNop())

	_, err := d.Enqueue(context.Background(), "mars_withdraw", nil, nil)
	require.Error(t, err)
}

// TestDriver_Tick_SucceedsRegardlessOfReceiptOutcome confirms Tick's result
// never depends on whether the best-effort action-event lookup in
// logTickAction finds anything: a receipt fetch error, an empty-queue tick
// (no "wasm" action event), and a tick that dispatched a real message must
// all still return the broadcast tx handle with no error.
func TestDriver_Tick_SucceedsRegardlessOfReceiptOutcome(t *testing.T) {
	withAction := &sdktx.GetTxResponse{
		TxResponse: &sdk.TxResponse{
			Events: []abcitypes.Event{
				{Type: "wasm", Attributes: []abcitypes.EventAttribute{{Key: "action", Value: "mars_withdraw"}}},
			},
		},
	}
	emptyQueue := &sdktx.GetTxResponse{TxResponse: &sdk.TxResponse{}}

	for name, sub := range map[string]*fakeSubmitter{
		"receipt fetch fails":    {handle: "tx4", receiptErr: errs.Transport},
		"queue was empty":        {handle: "tx5", receipt: emptyQueue},
		"dispatched real action": {handle: "tx6", receipt: withAction},
	} {
		t.Run(name, func(t *testing.T) {
			d := NewDriver(sub, "authz1", "proc1", zap.NewNop())
			handle, err := d.Tick(context.Background())
			require.NoError(t, err)
			require.Equal(t, sub.handle, handle)
		})
	}
}
