package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/runnerr0/tagpivot/internal/storage"
	"github.com/runnerr0/tagpivot/internal/tags"
)

// BizarroResult is one ranked counterpoint tag: a tag that shows up
// structurally near the bridge layer while avoiding the seed interests.
type BizarroResult struct {
	Tag      string  `json:"tag"`
	Score    float64 `json:"score"`
	CoBridge int     `json:"coBridge"`
	Df       int     `json:"df"`
}

// ComputeBizarro ranks tags co-occurring with the top-M bridge tags in
// events that contain no seed tag — a second-order contrast signal, not a
// semantic opposite. Bridge tags already in the seed set are removed first
// (bridges must be complementary to seeds); candidates exclude both sets.
// Scoring and tie-breaks mirror ComputeBridges.
func ComputeBizarro(events []storage.TagEvent, seedTags []string, bridges []BridgeResult, days, topK, bridgeTopM, minCo int, now time.Time) []BizarroResult {
	seed := tags.NormalizeSet(seedTags)
	if len(seed) == 0 {
		return []BizarroResult{}
	}

	if bridgeTopM > len(bridges) {
		bridgeTopM = len(bridges)
	}
	bridgeNames := make([]string, 0, bridgeTopM)
	for _, b := range bridges[:bridgeTopM] {
		bridgeNames = append(bridgeNames, b.Tag)
	}
	bridgeSet := tags.NormalizeSet(bridgeNames)
	for s := range seed {
		delete(bridgeSet, s)
	}
	if len(bridgeSet) == 0 {
		return []BizarroResult{}
	}

	recent := recentEvents(events, days, now)
	total := len(recent)
	if total == 0 {
		return []BizarroResult{}
	}

	// Candidate document frequency across all recent events, excluding
	// seed and bridge tags themselves.
	df := make(map[string]int)
	for _, e := range recent {
		for _, t := range tags.Normalize(e.Tags) {
			if _, isSeed := seed[t]; isSeed {
				continue
			}
			if _, isBridge := bridgeSet[t]; isBridge {
				continue
			}
			df[t]++
		}
	}

	// Events that hit the bridge set but avoid the seed set.
	bridgeHits := 0
	coBridge := make(map[string]int)

	for _, e := range recent {
		evtTags := tags.Normalize(e.Tags)
		if len(evtTags) == 0 {
			continue
		}

		hitSeed := false
		hitBridge := false
		for _, t := range evtTags {
			if _, ok := seed[t]; ok {
				hitSeed = true
				break
			}
		}
		if hitSeed {
			continue
		}
		for _, t := range evtTags {
			if _, ok := bridgeSet[t]; ok {
				hitBridge = true
				break
			}
		}
		if !hitBridge {
			continue
		}

		bridgeHits++
		for _, t := range evtTags {
			if _, isSeed := seed[t]; isSeed {
				continue
			}
			if _, isBridge := bridgeSet[t]; isBridge {
				continue
			}
			coBridge[t]++
		}
	}

	if bridgeHits == 0 {
		return []BizarroResult{}
	}

	out := make([]BizarroResult, 0, len(coBridge))
	for tag, c := range coBridge {
		if c < minCo {
			continue
		}
		d := df[tag]
		if d == 0 {
			d = 1
		}

		relevance := float64(c) / float64(bridgeHits)
		rarityBoost := math.Log1p(float64(total) / float64(d))
		out = append(out, BizarroResult{Tag: tag, Score: relevance * rarityBoost, CoBridge: c, Df: d})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
