package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/runnerr0/tagpivot/internal/storage"
	"github.com/runnerr0/tagpivot/internal/tags"
)

// Default bridge-scoring parameters.
const (
	DefaultBridgeDays  = 60
	DefaultBridgeTopK  = 10
	DefaultBridgeMinCo = 2
	DefaultBridgeTopM  = 6
)

// BridgeResult is one ranked bridge tag. Co and Df are kept raw for
// tooltip display.
type BridgeResult struct {
	Tag   string  `json:"tag"`
	Score float64 `json:"score"`
	Co    int     `json:"co"`
	Df    int     `json:"df"`
}

// resolveDay returns the event's day key, falling back to the one derived
// from its timestamp when the stored key is malformed. Returns "" when
// neither is usable; such events are dropped from recency-scoped metrics.
func resolveDay(e storage.TagEvent) string {
	if _, err := ParseDay(e.Day); err == nil {
		return e.Day
	}
	if e.CapturedAtMs > 0 {
		return DayFromMillis(e.CapturedAtMs)
	}
	return ""
}

// withinLastDays reports whether day falls inside [now - days, now].
// Future days are excluded defensively (bad clocks, malformed data).
func withinLastDays(day string, days int, now time.Time) bool {
	t, err := ParseDay(day)
	if err != nil {
		return false
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	return !t.Before(cutoff) && !t.After(now)
}

// recentEvents filters events to those whose resolved day falls within the
// last `days` calendar days of now.
func recentEvents(events []storage.TagEvent, days int, now time.Time) []storage.TagEvent {
	out := make([]storage.TagEvent, 0, len(events))
	for _, e := range events {
		day := resolveDay(e)
		if day == "" || !withinLastDays(day, days, now) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ComputeBridges ranks non-seed tags by how often they ride along with the
// seed interests, boosted for rarity:
//
//	score = (co / seedHits) * log1p(total / df)
//
// where co counts events containing both a seed tag and the candidate,
// seedHits counts events containing any seed tag, and df is the candidate's
// document frequency across all retained events. Candidates below minCo are
// dropped; ties sort lexicographically.
func ComputeBridges(events []storage.TagEvent, seedTags []string, days, topK, minCo int, now time.Time) []BridgeResult {
	seed := tags.NormalizeSet(seedTags)

	recent := recentEvents(events, days, now)
	total := len(recent)
	if total == 0 || len(seed) == 0 {
		return []BridgeResult{}
	}

	df := make(map[string]int)
	co := make(map[string]int)
	seedHits := 0

	for _, e := range recent {
		evtTags := tags.Normalize(e.Tags)
		if len(evtTags) == 0 {
			continue
		}

		hitSeed := false
		for _, t := range evtTags {
			if _, ok := seed[t]; ok {
				hitSeed = true
				break
			}
		}
		if hitSeed {
			seedHits++
		}

		for _, t := range evtTags {
			if _, isSeed := seed[t]; isSeed {
				continue
			}
			df[t]++
			if hitSeed {
				co[t]++
			}
		}
	}

	if seedHits == 0 {
		return []BridgeResult{}
	}

	out := make([]BridgeResult, 0, len(co))
	for tag, c := range co {
		if c < minCo {
			continue
		}
		d := df[tag]
		if d == 0 {
			d = 1
		}

		relevance := float64(c) / float64(seedHits)
		rarityBoost := math.Log1p(float64(total) / float64(d))
		out = append(out, BridgeResult{Tag: tag, Score: relevance * rarityBoost, Co: c, Df: d})
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
