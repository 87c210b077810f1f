package metrics

import "math"

// Saturation points for the energy blend; counts beyond these stop
// contributing.
const (
	energyScrollSat = 200
	energyClickSat  = 80
)

// Energy blends scroll and click counts into a bounded [0,1] engagement
// scalar. Log-compressed so heavy scrolling does not explode the value.
func Energy(scrolls, clicks int) float64 {
	s := float64(scrolls)
	c := float64(clicks)
	if s < 0 {
		s = 0
	}
	if c < 0 {
		c = 0
	}
	if s > energyScrollSat {
		s = energyScrollSat
	}
	if c > energyClickSat {
		c = energyClickSat
	}

	sNorm := math.Log1p(s) / math.Log1p(energyScrollSat)
	cNorm := math.Log1p(c) / math.Log1p(energyClickSat)

	e := 0.65*sNorm + 0.35*cNorm
	if e < 0 {
		return 0
	}
	if e > 1 {
		return 1
	}
	return e
}
