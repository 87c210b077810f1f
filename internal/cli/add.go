package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/tagpivot/internal/canon"
	"github.com/runnerr0/tagpivot/internal/metrics"
	"github.com/runnerr0/tagpivot/internal/storage"
	"github.com/runnerr0/tagpivot/internal/tags"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
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

	return c.executeWithStore(store, cfg.Capture.MaxTagsPerEvent)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store storage.Store, maxTags int) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}
	if len(c.Tags) == 0 {
		return fmt.Errorf("at least one --tag is required for add command")
	}

	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	capturedAt := time.Now()
	if c.At != "" {
		capturedAt, err = time.Parse(time.RFC3339, c.At)
		if err != nil {
			return fmt.Errorf("invalid --at timestamp: %w", err)
		}
	}

	normalized := tags.Normalize(c.Tags)
	if len(normalized) == 0 {
		return fmt.Errorf("no usable tags after normalization")
	}
	if maxTags > 0 && len(normalized) > maxTags {
		normalized = normalized[:maxTags]
	}

	event := &storage.TagEvent{
		Day:          capturedAt.Local().Format("2006-01-02"),
		CapturedAtMs: capturedAt.UnixMilli(),
		Domain:       canon.Domain(c.URL),
		URLHash:      canon.Hash(c.URL),
		Tags:         normalized,
	}

	if c.Scrolls > 0 || c.Clicks > 0 {
		event.Probe = &storage.Probe{
			ScrollCount: c.Scrolls,
			ClickCount:  c.Clicks,
			Energy:      metrics.Energy(c.Scrolls, c.Clicks),
		}
	}

	if err := store.AppendEvent(context.Background(), event); err != nil {
		return fmt.Errorf("storing event: %w", err)
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"day":     event.Day,
			"domain":  event.Domain,
			"urlHash": event.URLHash,
			"tags":    event.Tags,
			"ts":      capturedAt.Format(time.RFC3339),
		}
		if event.Probe != nil {
			out["energy"] = event.Probe.Energy
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Recorded event for %s (%s)\n", event.Domain, capturedAt.Format(time.RFC3339))
	fmt.Printf("  Tags: %s\n", strings.Join(event.Tags, ", "))
	if event.Probe != nil {
		fmt.Printf("  Energy: %.2f\n", event.Probe.Energy)
	}

	return nil
}
