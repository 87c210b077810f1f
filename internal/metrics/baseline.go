package metrics

import (
	"math"
	"sort"
	"strings"

	"github.com/runnerr0/tagpivot/internal/storage"
)

// MeanStd returns the population mean and standard deviation of values.
// The std is floored to 1 when below 1e-6 so z-scores on near-constant
// series never blow up; an empty slice yields {0, 1}.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 1
	}

	var sum float64
	for _, x := range values {
		sum += x
	}
	mean = sum / float64(len(values))

	var v float64
	for _, x := range values {
		d := x - mean
		v += d * d
	}
	v /= float64(len(values))

	std = math.Sqrt(v)
	if std <= 1e-6 {
		std = 1
	}
	return mean, std
}

// ZScore returns (x - mean) / std, guarding a zero std.
func ZScore(x, mean, std float64) float64 {
	if std == 0 {
		std = 1
	}
	return (x - mean) / std
}

// AppendSample is the pure form of the rolling-series update: replace any
// sample for the same day, sort ascending by day, truncate to the most
// recent max entries. The input slice is not mutated.
func AppendSample(series []storage.Sample, sample storage.Sample, max int) []storage.Sample {
	out := make([]storage.Sample, 0, len(series)+1)
	for _, s := range series {
		if s.Day != sample.Day {
			out = append(out, s)
		}
	}
	out = append(out, sample)

	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })

	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

// Values extracts the value column of a series.
func Values(series []storage.Sample) []float64 {
	vals := make([]float64, len(series))
	for i, s := range series {
		vals[i] = s.Value
	}
	return vals
}

var sparkGlyphs = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline maps values linearly into 8 bucketed glyphs spanning the
// slice's own [min, max]. Flat input renders as all-lowest glyphs.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min

	if span < 1e-9 {
		return strings.Repeat(string(sparkGlyphs[0]), len(values))
	}

	var b strings.Builder
	for _, v := range values {
		t := (v - min) / span
		idx := int(math.Round(t * 7))
		if idx < 0 {
			idx = 0
		}
		if idx > 7 {
			idx = 7
		}
		b.WriteRune(sparkGlyphs[idx])
	}
	return b.String()
}
