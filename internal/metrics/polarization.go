package metrics

import (
	"math"
	"sort"

	"github.com/runnerr0/tagpivot/internal/storage"
)

// Floors for polarization: below these the topic space has no structure
// worth splitting.
const (
	PolMinEvents       = 6
	PolMinDistinctTags = 8
)

// DefaultPoleSize is the grown size of each topic cluster.
const DefaultPoleSize = 8

// DownsampleCap bounds the event count fed into polarization.
const DownsampleCap = 2500

// PolState buckets a polarization z-score into a qualitative state.
type PolState string

const (
	PolFlat  PolState = "Flat"
	PolSplit PolState = "Split"
	PolPeaks PolState = "Peaks"
)

// PolStateFromZ maps |z| to a polarization state.
func PolStateFromZ(zAbs float64) PolState {
	switch {
	case zAbs < 0.5:
		return PolFlat
	case zAbs < 1.5:
		return PolSplit
	default:
		return PolPeaks
	}
}

// PolarizationOut is the polarization scalar plus the two grown poles.
type PolarizationOut struct {
	Pol         float64
	ActivePole  []string
	CounterPole []string
	Debug       PolarizationDebug
}

// PolarizationDebug carries the raw counts behind the scalar.
type PolarizationDebug struct {
	Within float64
	Cross  float64
	Events int
	Tags   int
}

// graph is a tag co-occurrence graph over an event set: df counts events
// containing a tag, co counts events containing both tags (symmetric,
// self-pairs excluded).
type graph struct {
	df map[string]int
	co map[string]map[string]int
}

func (g *graph) addCo(a, b string) {
	if a == b {
		return
	}
	row := g.co[a]
	if row == nil {
		row = make(map[string]int)
		g.co[a] = row
	}
	row[b]++
}

func (g *graph) getCo(a, b string) int {
	return g.co[a][b]
}

func buildGraph(events []storage.TagEvent) *graph {
	g := &graph{df: make(map[string]int), co: make(map[string]map[string]int)}

	for _, e := range events {
		evtTags := dedupeTags(e.Tags)
		for _, t := range evtTags {
			g.df[t]++
		}
		for i := 0; i < len(evtTags); i++ {
			for j := i + 1; j < len(evtTags); j++ {
				g.addCo(evtTags[i], evtTags[j])
				g.addCo(evtTags[j], evtTags[i])
			}
		}
	}

	return g
}

// dedupeTags deduplicates an already-normalized tag list, preserving the
// sorted order the store guarantees.
func dedupeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// highestDf picks the center: the tag with the highest document frequency,
// ties broken by lexicographically smallest tag so the result never depends
// on map iteration order.
func (g *graph) highestDf() string {
	best := ""
	bestV := -1
	for t, v := range g.df {
		if v > bestV || (v == bestV && t < best) {
			bestV = v
			best = t
		}
	}
	return best
}

// pickOpposite chooses the counter pole seed: among reasonably frequent
// tags (df >= 2, excluding center), the one minimizing
// (co(center,t)+0.25)/(df(t)+0.25). That is structural separation, not a
// sentiment judgment. Ties break lexicographically.
func (g *graph) pickOpposite(center string) string {
	if g.df[center] <= 0 {
		return ""
	}

	best := ""
	bestScore := math.Inf(1)
	for t, d := range g.df {
		if t == center || d < 2 {
			continue
		}
		score := (float64(g.getCo(center, t)) + 0.25) / (float64(d) + 0.25)
		if score < bestScore || (score == bestScore && (best == "" || t < best)) {
			bestScore = score
			best = t
		}
	}
	return best
}

// growCluster grows a pole of up to k tags from seed: rank candidates with
// df >= 2 and positive co-occurrence with seed by co/(df+0.5) descending
// (ties lexicographic), take the top k-1, prepend seed.
func (g *graph) growCluster(seed string, ban map[string]struct{}, k int) []string {
	type scored struct {
		tag   string
		score float64
	}
	var candidates []scored

	for t, d := range g.df {
		if t == seed || d < 2 {
			continue
		}
		if _, banned := ban[t]; banned {
			continue
		}
		co := g.getCo(seed, t)
		if co <= 0 {
			continue
		}
		candidates = append(candidates, scored{t, float64(co) / (float64(d) + 0.5)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tag < candidates[j].tag
	})

	n := k - 1
	if n < 0 {
		n = 0
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	cluster := make([]string, 0, n+1)
	cluster = append(cluster, seed)
	for _, c := range candidates[:n] {
		cluster = append(cluster, c.tag)
	}
	return cluster
}

func (g *graph) sumWithin(cluster []string) float64 {
	var s float64
	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			s += float64(g.getCo(cluster[i], cluster[j]))
		}
	}
	return s
}

func (g *graph) sumCross(a, b []string) float64 {
	var s float64
	for _, x := range a {
		for _, y := range b {
			s += float64(g.getCo(x, y))
		}
	}
	return s
}

// ComputePolarization builds the co-occurrence graph over events, grows two
// opposing poles, and scores how much co-occurrence mass stays within the
// poles versus crossing between them. Returns nil when the event set has
// too little structure (fewer than PolMinEvents events or PolMinDistinctTags
// distinct tags, or no qualifying opposite tag): callers must treat nil as
// "insufficient data", not as zero polarization.
func ComputePolarization(events []storage.TagEvent, poleSize int) *PolarizationOut {
	if len(events) < PolMinEvents {
		return nil
	}

	g := buildGraph(events)
	if len(g.df) < PolMinDistinctTags {
		return nil
	}

	center := g.highestDf()
	if center == "" {
		return nil
	}

	opposite := g.pickOpposite(center)
	if opposite == "" {
		return nil
	}

	activePole := g.growCluster(center, map[string]struct{}{opposite: {}}, poleSize)
	counterPole := g.growCluster(opposite, map[string]struct{}{center: {}}, poleSize)

	within := g.sumWithin(activePole) + g.sumWithin(counterPole)
	cross := g.sumCross(activePole, counterPole)

	pol := within / (within + cross + 1e-6)
	if pol < 0 {
		pol = 0
	}
	if pol > 1 {
		pol = 1
	}

	return &PolarizationOut{
		Pol:         pol,
		ActivePole:  activePole,
		CounterPole: counterPole,
		Debug: PolarizationDebug{
			Within: within,
			Cross:  cross,
			Events: len(events),
			Tags:   len(g.df),
		},
	}
}

// Downsample takes a fixed-stride sample from the start of events,
// preserving order, to bound CPU cost. Deterministic: the same input
// always yields the same sample.
func Downsample(events []storage.TagEvent, cap int) []storage.TagEvent {
	if cap <= 0 || len(events) <= cap {
		return events
	}
	step := (len(events) + cap - 1) / cap
	out := make([]storage.TagEvent, 0, cap)
	for i := 0; i < len(events) && len(out) < cap; i += step {
		out = append(out, events[i])
	}
	return out
}
