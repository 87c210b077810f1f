package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/tagpivot/internal/config"
	"github.com/runnerr0/tagpivot/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalEvents       int64             `json:"total_events"`
	TotalDays         int64             `json:"total_days"`
	OldestDay         string            `json:"oldest_day,omitempty"`
	NewestDay         string            `json:"newest_day,omitempty"`
	RetentionDays     int               `json:"retention_days"`
	MaxEvents         int               `json:"max_events"`
	TopDomains        []domainCountJSON `json:"top_domains"`
	SeriesCounts      map[string]int64  `json:"series_counts"`
	DaemonRunning     bool              `json:"daemon_running"`
}

type domainCountJSON struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store, db, cfg)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(store storage.Store, db *sql.DB, cfg *config.Config) error {
	stats, err := store.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	dbSize := getDatabaseSize(db, dbPath)
	daemonRunning := checkDaemon(cfg)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, cfg, dbPath, dbSize, daemonRunning)
	}
	return c.printStatusHuman(stats, cfg, dbPath, dbSize, daemonRunning)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64, daemonRunning bool) error {
	fmt.Println("Tagpivot Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, humanize.Bytes(uint64(dbSize)))
	fmt.Printf("Events:        %s\n", humanize.Comma(stats.TotalEvents))
	fmt.Printf("Days tracked:  %s\n", humanize.Comma(stats.TotalDays))

	if stats.TotalEvents > 0 {
		fmt.Printf("Oldest:        %s\n", stats.OldestDay)
		fmt.Printf("Newest:        %s\n", stats.NewestDay)
	}

	fmt.Printf("Retention:     %d days / %s events max\n", cfg.Retention.Days, humanize.Comma(int64(cfg.Retention.MaxEvents)))

	if len(stats.SeriesCounts) > 0 {
		fmt.Println()
		fmt.Println("Baselines:")
		for _, metric := range []string{storage.MetricTemperature, storage.MetricPolarization} {
			if n, ok := stats.SeriesCounts[metric]; ok {
				fmt.Printf("  %-13s %d samples\n", metric, n)
			}
		}
	}

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-20s %s\n", d.Domain, humanize.Comma(d.Count))
		}
	}

	fmt.Println()
	if daemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64, daemonRunning bool) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalEvents:       stats.TotalEvents,
		TotalDays:         stats.TotalDays,
		OldestDay:         stats.OldestDay,
		NewestDay:         stats.NewestDay,
		RetentionDays:     cfg.Retention.Days,
		MaxEvents:         cfg.Retention.MaxEvents,
		TopDomains:        make([]domainCountJSON, len(stats.TopDomains)),
		SeriesCounts:      stats.SeriesCounts,
		DaemonRunning:     daemonRunning,
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainCountJSON{Domain: d.Domain, Count: d.Count}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// getDatabaseSize returns the database file size in bytes. For in-memory
// databases it falls back to page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkDaemon attempts an HTTP GET to the configured daemon health endpoint.
// Returns true if the daemon responds within 1 second.
func checkDaemon(cfg *config.Config) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	url := fmt.Sprintf("http://%s:%d/healthz", cfg.Daemon.Host, cfg.Daemon.Port)
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
