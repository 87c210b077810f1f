package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/tagpivot/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
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

	retention := time.Duration(cfg.Retention.Days) * 24 * time.Hour
	return c.executeWithStore(store, retention)
}

// executeWithStore runs the prune logic against a provided store (used by tests).
func (c *PruneCommand) executeWithStore(store *storage.SQLiteStore, retention time.Duration) error {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return err
		}
		retention = d
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-retention)

	var pruned int64
	var err error
	if c.DryRun {
		pruned, err = store.CountExpired(ctx, cutoff)
	} else {
		pruned, err = store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"pruned":    pruned,
			"dry_run":   c.DryRun,
			"retention": formatDurationHuman(retention),
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	if c.DryRun {
		fmt.Printf("Would prune %d events older than %s.\n", pruned, formatDurationHuman(retention))
	} else {
		fmt.Printf("Pruned %d events older than %s.\n", pruned, formatDurationHuman(retention))
	}
	return nil
}
