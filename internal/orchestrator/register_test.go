package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/indexer"
)

// TestRunRegisterObligations_EmptyIndexerIsNoop exercises spec.md §8
// scenario 6: latest_id = 7, the indexer returns no events, so the phase
// must make zero RPC writes and zero coprocessor requests.
func TestRunRegisterObligations_EmptyIndexerIsNoop(t *testing.T) {
	cosmos := newFakeCosmos()
	query, err := json.Marshal(clearingQueueQueryMsg{LatestRegisteredID: &struct{}{}})
	require.NoError(t, err)
	cosmos.contractReads[string(query)] = []byte(`{"id": 7}`)

	idx := &fakeIndexer{events: nil}
	coproc := &fakeCoprocessor{}
	ctrl := &fakeController{}
	driver := &fakeDriver{}

	w := &Worker{
		dest:        cosmos,
		indexer:     idx,
		coprocessor: coproc,
		controller:  ctrl,
		driver:      driver,
		log:         testLogger(),
	}

	require.NoError(t, w.runRegisterObligations(context.Background()))

	require.NotNil(t, idx.lastStartArg)
	require.Equal(t, uint64(8), *idx.lastStartArg)
	require.Zero(t, coproc.calls)
	require.Zero(t, ctrl.calls)
	require.Empty(t, driver.enqueued)
	require.Zero(t, driver.ticks)
	require.Zero(t, driver.executeZKCall)
}

// TestRunRegisterObligations_IsIdempotent confirms running two consecutive
// cycles with no new indexer events in between yields zero on-chain
// transactions on the second pass.
func TestRunRegisterObligations_IsIdempotent(t *testing.T) {
	cosmos := newFakeCosmos()
	query, err := json.Marshal(clearingQueueQueryMsg{LatestRegisteredID: &struct{}{}})
	require.NoError(t, err)
	cosmos.contractReads[string(query)] = []byte(`{"id": 3}`)

	idx := &fakeIndexer{events: []indexer.WithdrawEvent{}}
	driver := &fakeDriver{}
	w := &Worker{
		dest:        cosmos,
		indexer:     idx,
		coprocessor: &fakeCoprocessor{},
		controller:  &fakeController{},
		driver:      driver,
		log:         testLogger(),
	}

	require.NoError(t, w.runRegisterObligations(context.Background()))
	require.NoError(t, w.runRegisterObligations(context.Background()))
	require.Empty(t, driver.enqueued)
	require.Zero(t, driver.ticks)
}
