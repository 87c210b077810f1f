package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func probWindow(p map[string]float64) WindowAgg {
	return WindowAgg{TagProb: p}
}

func TestTVDistance_IdenticalIsZero(t *testing.T) {
	x := probWindow(map[string]float64{"go": 0.5, "rust": 0.3, "zig": 0.2})
	assert.Equal(t, 0.0, TVDistance(x, x))
}

func TestTVDistance_Symmetric(t *testing.T) {
	a := probWindow(map[string]float64{"go": 0.7, "rust": 0.3})
	b := probWindow(map[string]float64{"go": 0.2, "zig": 0.8})
	assert.InDelta(t, TVDistance(a, b), TVDistance(b, a), 1e-12)
}

func TestTVDistance_DisjointSupportIsOne(t *testing.T) {
	a := probWindow(map[string]float64{"go": 1.0})
	b := probWindow(map[string]float64{"rust": 1.0})
	assert.InDelta(t, 1.0, TVDistance(a, b), 1e-12)
}

func TestTVDistance_MissingKeysTreatedAsZero(t *testing.T) {
	a := probWindow(map[string]float64{"go": 0.5, "rust": 0.5})
	b := probWindow(map[string]float64{"go": 0.5})
	// 0.5 * (|0.5-0.5| + |0.5-0|) = 0.25
	assert.InDelta(t, 0.25, TVDistance(a, b), 1e-12)
}

func TestTempStateFromZ(t *testing.T) {
	tests := []struct {
		z    float64
		want TempState
	}{
		{0.0, TempSettled},
		{0.49, TempSettled},
		{0.5, TempActive},
		{0.99, TempActive},
		{1.0, TempChanging},
		{1.99, TempChanging},
		{2.0, TempCalibrating},
		{5.0, TempCalibrating},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TempStateFromZ(tc.z), "z=%v", tc.z)
	}
}

func TestPolStateFromZ(t *testing.T) {
	assert.Equal(t, PolFlat, PolStateFromZ(0.2))
	assert.Equal(t, PolSplit, PolStateFromZ(0.5))
	assert.Equal(t, PolSplit, PolStateFromZ(1.49))
	assert.Equal(t, PolPeaks, PolStateFromZ(1.5))
}
