package metrics

import "math"

// TempState buckets a temperature z-score into a qualitative state.
type TempState string

const (
	TempSettled     TempState = "Settled"
	TempActive      TempState = "Active"
	TempChanging    TempState = "Changing"
	TempCalibrating TempState = "Calibrating"
)

// TVDistance is the total variation distance between two windows'
// tag-probability distributions: 0.5 * sum |now[k] - prev[k]| over the
// union of keys, with absent keys treated as probability 0. The result
// is clamped to [0,1]; a non-finite result coerces to 0 so one bad
// record cannot poison the metric.
func TVDistance(now, prev WindowAgg) float64 {
	var sum float64
	for k, pa := range now.TagProb {
		sum += math.Abs(pa - prev.TagProb[k])
	}
	for k, pb := range prev.TagProb {
		if _, seen := now.TagProb[k]; !seen {
			sum += math.Abs(pb)
		}
	}

	tv := 0.5 * sum
	if math.IsNaN(tv) || math.IsInf(tv, 0) {
		return 0
	}
	if tv < 0 {
		return 0
	}
	if tv > 1 {
		return 1
	}
	return tv
}

// TempStateFromZ maps |z| to a temperature state.
func TempStateFromZ(zAbs float64) TempState {
	switch {
	case zAbs < 0.5:
		return TempSettled
	case zAbs < 1.0:
		return TempActive
	case zAbs < 2.0:
		return TempChanging
	default:
		return TempCalibrating
	}
}
