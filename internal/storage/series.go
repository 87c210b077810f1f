package storage

import (
	"context"
	"fmt"
)

// LoadSeries returns the rolling sample series for a metric, sorted
// ascending by day.
func (s *SQLiteStore) LoadSeries(ctx context.Context, metric string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, value FROM samples WHERE metric = ? ORDER BY day", metric,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s series: %w", metric, err)
	}
	defer rows.Close()

	series := []Sample{}
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Day, &sm.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		series = append(series, sm)
	}
	return series, rows.Err()
}

// AppendSample upserts one sample (last write for a day wins), truncates
// the series to the most recent SeriesMax entries, and returns the updated
// series sorted ascending by day.
func (s *SQLiteStore) AppendSample(ctx context.Context, metric string, sample Sample) ([]Sample, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO samples (metric, day, value) VALUES (?, ?, ?)",
		metric, sample.Day, sample.Value,
	); err != nil {
		return nil, fmt.Errorf("upsert sample: %w", err)
	}

	// Keep only the most recent SeriesMax days.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM samples WHERE metric = ? AND day NOT IN (
			SELECT day FROM samples WHERE metric = ? ORDER BY day DESC LIMIT ?
		)`, metric, metric, SeriesMax,
	); err != nil {
		return nil, fmt.Errorf("truncate series: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.LoadSeries(ctx, metric)
}

// PurgeSeries deletes every rolling sample series.
func (s *SQLiteStore) PurgeSeries(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM samples"); err != nil {
		return fmt.Errorf("purge series: %w", err)
	}
	return nil
}
