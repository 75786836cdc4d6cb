package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/internal/state"
)

func TestStateCollectorExportsFlowGauges(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsm := state.NewStateMachine(state.NewRedisStorage(client, log, 0), log, client)
	ctx := context.Background()

	require.NoError(t, fsm.SetState(ctx, 1, state.StateSearchQuery, nil))
	require.NoError(t, fsm.SetState(ctx, 2, state.StateSearchQuery, nil))
	require.NoError(t, fsm.SetState(ctx, 3, state.StateBroadcastContent, nil))

	require.NoError(t, NewStateCollector(fsm).collect(ctx))

	assert.Equal(t, 3.0, testutil.ToFloat64(activeUsers))
	assert.Equal(t, 2.0, testutil.ToFloat64(usersByState.WithLabelValues(string(state.StateSearchQuery))))
	assert.Equal(t, 1.0, testutil.ToFloat64(usersByState.WithLabelValues(string(state.StateBroadcastContent))))
	assert.Equal(t, 0.0, testutil.ToFloat64(usersByState.WithLabelValues(string(state.StateManageTarget))))
}

func TestRecordStateTransitionLabelsUnknown(t *testing.T) {
	before := testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("unknown", "anime-name"))
	RecordStateTransition("", "anime-name")
	assert.Equal(t, before+1, testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("unknown", "anime-name")))
}
