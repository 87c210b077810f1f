package metrics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runnerr0/tagpivot/internal/storage"
)

func TestMeanStd_Basic(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)
}

func TestMeanStd_ConstantSeriesFloorsStd(t *testing.T) {
	mean, std := MeanStd([]float64{5, 5, 5, 5})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 1.0, std, "std must be floored, never 0")
}

func TestMeanStd_Empty(t *testing.T) {
	mean, std := MeanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, std)
}

func TestZScore_NeverDividesByZero(t *testing.T) {
	assert.Equal(t, 2.0, ZScore(7, 5, 1))
	assert.Equal(t, 2.0, ZScore(7, 5, 0))
}

func TestAppendSample_ReplacesSameDay(t *testing.T) {
	series := []storage.Sample{
		{Day: "2026-08-01", Value: 0.1},
		{Day: "2026-08-02", Value: 0.2},
	}
	out := AppendSample(series, storage.Sample{Day: "2026-08-02", Value: 0.9}, 60)
	assert.Len(t, out, 2)
	assert.Equal(t, 0.9, out[1].Value)

	// Input untouched.
	assert.Equal(t, 0.2, series[1].Value)
}

func TestAppendSample_SortsAndTruncates(t *testing.T) {
	var series []storage.Sample
	for i := 70; i >= 1; i-- {
		day := fmt.Sprintf("2026-06-%02d", (i%28)+1)
		series = AppendSample(series, storage.Sample{Day: day, Value: float64(i)}, 60)
	}
	// Dedupe by day caps this at 28 distinct days; verify ordering.
	for i := 1; i < len(series); i++ {
		assert.Less(t, series[i-1].Day, series[i].Day)
	}

	// Now overflow the cap with distinct days.
	series = nil
	for m := 1; m <= 3; m++ {
		for d := 1; d <= 28; d++ {
			day := fmt.Sprintf("2026-%02d-%02d", m, d)
			series = AppendSample(series, storage.Sample{Day: day, Value: 1}, 60)
		}
	}
	assert.Len(t, series, 60)
	assert.Equal(t, "2026-03-28", series[len(series)-1].Day)
}

func TestSparkline_FlatInput(t *testing.T) {
	assert.Equal(t, "▁▁▁▁", Sparkline([]float64{3, 3, 3, 3}))
}

func TestSparkline_SpansBuckets(t *testing.T) {
	got := Sparkline([]float64{0, 1})
	assert.Equal(t, "▁█", got)

	got = Sparkline([]float64{0, 0.5, 1})
	assert.Equal(t, "▁▅█", got)
}

func TestSparkline_Empty(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
}
