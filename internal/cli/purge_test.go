package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tagpivot/internal/storage"
)

func TestPurgeCommand_RequiresAllFlag(t *testing.T) {
	cmd := &PurgeCommand{globals: &GlobalFlags{}}
	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}

func TestPurgeCommand_DeletesEverything(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	seedEvent(t, store, 1, 1, "go")
	_, err := store.AppendSample(ctx, storage.MetricTemperature, storage.Sample{
		Day: time.Now().Format("2006-01-02"), Value: 0.3,
	})
	require.NoError(t, err)

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})
	assert.Contains(t, out, "Purged all data")

	events, err := store.LoadEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	series, err := store.LoadSeries(ctx, storage.MetricTemperature)
	require.NoError(t, err)
	assert.Empty(t, series, "baselines are wiped too")
}

func TestPurgeCommand_StoreUsableAfterPurge(t *testing.T) {
	store, _ := testStore(t)

	seedEvent(t, store, 1, 1, "go")

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}}
	captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	seedEvent(t, store, 1, 2, "rust")
	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
