// Package metrics implements the pure analytics over tag events: adaptive
// window selection, temperature (topic-mix drift), polarization clustering,
// bridge/counterpoint scoring, and the rolling baseline machinery. Every
// function here is deterministic over its inputs and performs no I/O.
package metrics

import (
	"fmt"
	"time"

	"github.com/runnerr0/tagpivot/internal/storage"
)

// Default window-selection parameters.
var DefaultWindowCandidates = []int{8, 13, 21, 30, 60}

const (
	DefaultWindowMinTotal  = 20
	DefaultWindowMinUnique = 15
)

// WindowAgg is a normalized tag-probability snapshot over an inclusive
// range of calendar days.
type WindowAgg struct {
	TagProb    map[string]float64
	TotalCount int
	UniqueTags int
	DayFrom    string
	DayTo      string
}

// ChosenWindow is the result of the smallest-adequate-window search.
type ChosenWindow struct {
	WindowDays int
	Now        WindowAgg
	Prev       WindowAgg
}

// ParseDay parses a YYYY-MM-DD day key as local midnight.
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return t, nil
}

// FormatDay formats a time as its local YYYY-MM-DD day key.
func FormatDay(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// DayFromMillis returns the local day key for an epoch-milliseconds timestamp.
func DayFromMillis(ms int64) string {
	return FormatDay(time.UnixMilli(ms))
}

// ShiftDay returns the day key daysBack calendar days before endDay.
// Uses calendar arithmetic so DST transitions cannot skip a day.
func ShiftDay(endDay string, daysBack int) (string, error) {
	t, err := ParseDay(endDay)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, -daysBack)), nil
}

// BuildWindowAgg sums tag frequencies across the inclusive range
// [endDay-(windowDays-1), endDay], skipping absent days, and normalizes
// them into probabilities. An empty range yields TotalCount 0 and an
// empty TagProb map.
func BuildWindowAgg(daily map[string]storage.DailyAgg, endDay string, windowDays int) (WindowAgg, error) {
	end, err := ParseDay(endDay)
	if err != nil {
		return WindowAgg{}, err
	}
	start := end.AddDate(0, 0, -(windowDays - 1))

	freq := make(map[string]int)
	total := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		agg, ok := daily[FormatDay(d)]
		if !ok {
			continue
		}
		for tag, c := range agg.TagFreq {
			freq[tag] += c
			total += c
		}
	}

	prob := make(map[string]float64, len(freq))
	if total > 0 {
		for tag, c := range freq {
			prob[tag] = float64(c) / float64(total)
		}
	}

	return WindowAgg{
		TagProb:    prob,
		TotalCount: total,
		UniqueTags: len(freq),
		DayFrom:    FormatDay(start),
		DayTo:      FormatDay(end),
	}, nil
}

// ChooseWindowDays tries candidate window sizes in ascending order and
// returns the first whose "now" window (ending at endDay) and "prev" window
// (same size, ending immediately before "now") both satisfy the minimum
// total and unique-tag thresholds. Returns nil when no candidate qualifies:
// the caller must treat that as "not enough data", not as a zero result.
func ChooseWindowDays(daily map[string]storage.DailyAgg, endDay string, candidates []int, minTotal, minUnique int) (*ChosenWindow, error) {
	if len(candidates) == 0 {
		candidates = DefaultWindowCandidates
	}

	for _, w := range candidates {
		now, err := BuildWindowAgg(daily, endDay, w)
		if err != nil {
			return nil, err
		}
		prevEnd, err := ShiftDay(endDay, w)
		if err != nil {
			return nil, err
		}
		prev, err := BuildWindowAgg(daily, prevEnd, w)
		if err != nil {
			return nil, err
		}

		okNow := now.TotalCount >= minTotal && now.UniqueTags >= minUnique
		okPrev := prev.TotalCount >= minTotal && prev.UniqueTags >= minUnique
		if okNow && okPrev {
			return &ChosenWindow{WindowDays: w, Now: now, Prev: prev}, nil
		}
	}

	return nil, nil
}
