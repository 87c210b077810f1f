package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/tagpivot/internal/config"
	"github.com/runnerr0/tagpivot/internal/metrics"
	"github.com/runnerr0/tagpivot/internal/storage"
	"github.com/runnerr0/tagpivot/internal/tags"
)

// sparkTail is how many trailing samples of each series the report renders.
const sparkTail = 8

// temperatureReading is the temperature section of a report.
type temperatureReading struct {
	TV        float64 `json:"tv"`
	Z         float64 `json:"z"`
	State     string  `json:"state"`
	Sparkline string  `json:"sparkline"`
}

// polarizationReading is the polarization section of a report.
type polarizationReading struct {
	Pol         float64  `json:"pol"`
	Z           float64  `json:"z"`
	State       string   `json:"state"`
	Sparkline   string   `json:"sparkline"`
	ActivePole  []string `json:"activePole"`
	CounterPole []string `json:"counterPole"`

	Within float64 `json:"within,omitempty"`
	Cross  float64 `json:"cross,omitempty"`
}

// report is the full output of one analysis run.
type report struct {
	EndDay       string                  `json:"endDay"`
	WindowDays   int                     `json:"windowDays,omitempty"`
	Calibrating  bool                    `json:"calibrating"`
	Temperature  *temperatureReading     `json:"temperature,omitempty"`
	Polarization *polarizationReading    `json:"polarization,omitempty"`
	Seeds        []string                `json:"seeds,omitempty"`
	Bridges      []metrics.BridgeResult  `json:"bridges,omitempty"`
	Bizarro      []metrics.BizarroResult `json:"bizarro,omitempty"`
}

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()
	defer db.Close()

	return c.executeWithStore(store, cfg)
}

// executeWithStore runs the report pipeline against a provided store (used by tests).
func (c *ReportCommand) executeWithStore(store storage.Store, cfg *config.Config) error {
	now := time.Now()
	endDay := metrics.FormatDay(now)
	if c.EndDay != "" {
		if _, err := metrics.ParseDay(c.EndDay); err != nil {
			return err
		}
		endDay = c.EndDay
	}

	rep, err := buildReport(context.Background(), store, cfg, tags.Normalize(c.Tags), endDay, now)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		if !c.Debug && rep.Polarization != nil {
			rep.Polarization.Within = 0
			rep.Polarization.Cross = 0
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return c.printHuman(rep)
}

// buildReport runs the full pipeline: window selection, temperature against
// its rolling baseline, polarization over the chosen window's events, then
// bridge and counterpoint discovery from the seed tags.
func buildReport(ctx context.Context, store storage.Store, cfg *config.Config, seeds []string, endDay string, now time.Time) (*report, error) {
	rep := &report{EndDay: endDay, Seeds: seeds}

	daily, err := store.LoadDailyAggs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily aggregates: %w", err)
	}

	win, err := metrics.ChooseWindowDays(daily, endDay, cfg.Analysis.WindowCandidates, cfg.Analysis.WindowMinTotal, cfg.Analysis.WindowMinUnique)
	if err != nil {
		return nil, err
	}
	if win == nil {
		rep.Calibrating = true
		return rep, nil
	}
	rep.WindowDays = win.WindowDays

	tv := metrics.TVDistance(win.Now, win.Prev)
	tempSeries, err := store.AppendSample(ctx, storage.MetricTemperature, storage.Sample{Day: endDay, Value: tv})
	if err != nil {
		return nil, fmt.Errorf("update temperature series: %w", err)
	}
	tempVals := metrics.Values(tempSeries)
	mean, std := metrics.MeanStd(tempVals)
	z := metrics.ZScore(tv, mean, std)
	rep.Temperature = &temperatureReading{
		TV:        tv,
		Z:         z,
		State:     string(metrics.TempStateFromZ(math.Abs(z))),
		Sparkline: metrics.Sparkline(tail(tempVals, sparkTail)),
	}

	events, err := store.LoadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	windowEvents := eventsInRange(events, win.Now.DayFrom, win.Now.DayTo)
	if len(windowEvents) >= cfg.Analysis.PolarizationMinEvts {
		sample := metrics.Downsample(windowEvents, cfg.Analysis.DownsampleCap)
		if out := metrics.ComputePolarization(sample, cfg.Analysis.PoleSize); out != nil {
			polSeries, err := store.AppendSample(ctx, storage.MetricPolarization, storage.Sample{Day: endDay, Value: out.Pol})
			if err != nil {
				return nil, fmt.Errorf("update polarization series: %w", err)
			}
			polVals := metrics.Values(polSeries)
			pMean, pStd := metrics.MeanStd(polVals)
			pz := metrics.ZScore(out.Pol, pMean, pStd)
			rep.Polarization = &polarizationReading{
				Pol:         out.Pol,
				Z:           pz,
				State:       string(metrics.PolStateFromZ(math.Abs(pz))),
				Sparkline:   metrics.Sparkline(tail(polVals, sparkTail)),
				ActivePole:  out.ActivePole,
				CounterPole: out.CounterPole,
				Within:      out.Debug.Within,
				Cross:       out.Debug.Cross,
			}
		}
	}

	if len(seeds) > 0 {
		rep.Bridges = metrics.ComputeBridges(events, seeds, cfg.Analysis.BridgeDays, cfg.Analysis.BridgeTopK, cfg.Analysis.BridgeMinCo, now)
		rep.Bizarro = metrics.ComputeBizarro(events, seeds, rep.Bridges, cfg.Analysis.BridgeDays, cfg.Analysis.BridgeTopK, cfg.Analysis.BridgeTopM, cfg.Analysis.BridgeMinCo, now)
	}

	return rep, nil
}

// eventsInRange keeps events whose day falls inside [from, to] inclusive.
// Day keys compare correctly as strings.
func eventsInRange(events []storage.TagEvent, from, to string) []storage.TagEvent {
	out := make([]storage.TagEvent, 0, len(events))
	for _, e := range events {
		day := e.Day
		if day == "" {
			day = metrics.DayFromMillis(e.CapturedAtMs)
		}
		if day >= from && day <= to {
			out = append(out, e)
		}
	}
	return out
}

// tail returns the last n values of a slice.
func tail(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}

func (c *ReportCommand) printHuman(rep *report) error {
	fmt.Printf("Interest Report — %s\n", rep.EndDay)
	fmt.Println("==============================")

	if rep.Calibrating {
		fmt.Println("Calibrating: not enough history for any analysis window yet.")
		fmt.Println("Keep browsing; a report needs a window with enough events and distinct tags.")
		return nil
	}

	fmt.Printf("Window:        %d days\n", rep.WindowDays)

	t := rep.Temperature
	fmt.Printf("Temperature:   %.3f  z=%+.2f  [%s]  %s\n", t.TV, t.Z, t.State, t.Sparkline)

	if p := rep.Polarization; p != nil {
		fmt.Printf("Polarization:  %.3f  z=%+.2f  [%s]  %s\n", p.Pol, p.Z, p.State, p.Sparkline)
		fmt.Printf("  Active pole:  %s\n", strings.Join(p.ActivePole, ", "))
		fmt.Printf("  Counter pole: %s\n", strings.Join(p.CounterPole, ", "))
		if c.Debug {
			fmt.Printf("  within=%.1f cross=%.1f\n", p.Within, p.Cross)
		}
	} else {
		fmt.Println("Polarization:  — (not enough window events)")
	}

	if len(rep.Seeds) > 0 {
		fmt.Println()
		fmt.Printf("Seeds: %s\n", strings.Join(rep.Seeds, ", "))
		if len(rep.Bridges) > 0 {
			fmt.Println("Bridges:")
			for _, b := range rep.Bridges {
				fmt.Printf("  %-24s %.3f  (co=%d df=%d)\n", b.Tag, b.Score, b.Co, b.Df)
			}
		} else {
			fmt.Println("Bridges:       none found")
		}
		if len(rep.Bizarro) > 0 {
			fmt.Println("Counterpoints:")
			for _, b := range rep.Bizarro {
				fmt.Printf("  %-24s %.3f  (co=%d df=%d)\n", b.Tag, b.Score, b.CoBridge, b.Df)
			}
		}
	}

	return nil
}
