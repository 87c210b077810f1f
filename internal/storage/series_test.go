package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendSample_ReplacesByDay(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.AppendSample(ctx, MetricTemperature, Sample{Day: "2026-08-30", Value: 0.2})
	require.NoError(t, err)
	series, err := store.AppendSample(ctx, MetricTemperature, Sample{Day: "2026-08-30", Value: 0.7})
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.InDelta(t, 0.7, series[0].Value, 1e-12)
}

func TestAppendSample_SortedAndTruncated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local)
	var series []Sample
	var err error
	for i := 0; i < SeriesMax+5; i++ {
		day := base.AddDate(0, 0, i).Format("2006-01-02")
		series, err = store.AppendSample(ctx, MetricPolarization, Sample{Day: day, Value: float64(i)})
		require.NoError(t, err)
	}

	require.Len(t, series, SeriesMax, "oldest days dropped past the cap")
	assert.Equal(t, base.AddDate(0, 0, 5).Format("2006-01-02"), series[0].Day)
	for i := 1; i < len(series); i++ {
		assert.Less(t, series[i-1].Day, series[i].Day, "ascending by day")
	}
}

func TestSeries_IndependentPerMetric(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.AppendSample(ctx, MetricTemperature, Sample{Day: "2026-08-30", Value: 1})
	require.NoError(t, err)
	_, err = store.AppendSample(ctx, MetricPolarization, Sample{Day: "2026-08-30", Value: 2})
	require.NoError(t, err)

	temp, err := store.LoadSeries(ctx, MetricTemperature)
	require.NoError(t, err)
	pol, err := store.LoadSeries(ctx, MetricPolarization)
	require.NoError(t, err)

	require.Len(t, temp, 1)
	require.Len(t, pol, 1)
	assert.InDelta(t, 1, temp[0].Value, 1e-12)
	assert.InDelta(t, 2, pol[0].Value, 1e-12)
}

func TestPurgeSeries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		day := fmt.Sprintf("2026-08-2%d", i)
		_, err := store.AppendSample(ctx, MetricTemperature, Sample{Day: day, Value: float64(i)})
		require.NoError(t, err)
	}
	require.NoError(t, store.PurgeSeries(ctx))

	series, err := store.LoadSeries(ctx, MetricTemperature)
	require.NoError(t, err)
	assert.Empty(t, series)
}
