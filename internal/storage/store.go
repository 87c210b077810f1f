package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/runnerr0/tagpivot/internal/tags"
)

// Store defines the interface for tagpivot data operations.
type Store interface {
	EnsureMeta(ctx context.Context) (*StoreMeta, error)
	AppendEvent(ctx context.Context, evt *TagEvent) error
	LoadEvents(ctx context.Context) ([]TagEvent, error)
	LoadDailyAggs(ctx context.Context) (map[string]DailyAgg, error)
	LoadSeries(ctx context.Context, metric string) ([]Sample, error)
	AppendSample(ctx context.Context, metric string, s Sample) ([]Sample, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	PurgeSeries(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertEvent *sql.Stmt
	lastEvent   *sql.Stmt

	retentionDays int
	maxEvents     int
	dedupeMs      int64

	// now is swappable for tests.
	now func() time.Time
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database, and guarantees the meta row exists (wiping stale data
// on a version mismatch).
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{
		db:            db,
		retentionDays: DefaultRetentionDays,
		maxEvents:     MaxEvents,
		dedupeMs:      DedupeWindowMs,
		now:           time.Now,
	}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	if _, err := s.EnsureMeta(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure meta: %w", err)
	}

	return s, nil
}

// SetLimits overrides retention and capacity limits (from config).
func (s *SQLiteStore) SetLimits(retentionDays, maxEvents int, dedupeMs int64) {
	if retentionDays > 0 {
		s.retentionDays = retentionDays
	}
	if maxEvents > 0 {
		s.maxEvents = maxEvents
	}
	if dedupeMs >= 0 {
		s.dedupeMs = dedupeMs
	}
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertEvent, err = s.db.Prepare(`
		INSERT INTO events (day, captured_at_ms, domain, url_hash, tags, scroll_count, click_count, energy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.lastEvent, err = s.db.Prepare(`
		SELECT url_hash, captured_at_ms FROM events ORDER BY id DESC LIMIT 1
	`)
	if err != nil {
		return err
	}

	return nil
}

// EnsureMeta reads the meta row, wiping events, daily aggregates, and meta
// when the stored version does not match StoreVersion (no data migrations),
// and creating a fresh meta row when absent.
func (s *SQLiteStore) EnsureMeta(ctx context.Context) (*StoreMeta, error) {
	var m StoreMeta
	err := s.db.QueryRowContext(ctx,
		"SELECT version, created_at_ms, last_write_at_ms FROM meta WHERE id = 1",
	).Scan(&m.Version, &m.CreatedAtMs, &m.LastWriteAtMs)

	switch {
	case err == sql.ErrNoRows:
		// fall through to create
	case err != nil:
		return nil, fmt.Errorf("read meta: %w", err)
	case m.Version == StoreVersion:
		return &m, nil
	default:
		// Version mismatch: hard reset, no migration path.
		if err := s.wipeCore(ctx); err != nil {
			return nil, fmt.Errorf("reset on version mismatch: %w", err)
		}
	}

	nowMs := s.now().UnixMilli()
	fresh := StoreMeta{Version: StoreVersion, CreatedAtMs: nowMs, LastWriteAtMs: nowMs}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO meta (id, version, created_at_ms, last_write_at_ms) VALUES (1, ?, ?, ?)",
		fresh.Version, fresh.CreatedAtMs, fresh.LastWriteAtMs,
	)
	if err != nil {
		return nil, fmt.Errorf("create meta: %w", err)
	}
	return &fresh, nil
}

// wipeCore deletes events, daily aggregates, and meta. Rolling series are
// left alone; they carry their own cap and no schema identity.
func (s *SQLiteStore) wipeCore(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM events",
		"DELETE FROM daily_aggs",
		"DELETE FROM meta",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wipe (%s): %w", stmt, err)
		}
	}
	return nil
}

// AppendEvent normalizes and appends one event, then re-enforces retention,
// the hard cap, and the daily-aggregate rebuild, all in one transaction.
//
// An event whose tags normalize to nothing is silently discarded. A repeat
// visit (same url_hash as the most recent stored event, 0 <= delta <=
// DedupeWindowMs) is dropped without touching store metadata.
func (s *SQLiteStore) AppendEvent(ctx context.Context, evt *TagEvent) error {
	if _, err := s.EnsureMeta(ctx); err != nil {
		return err
	}

	normalized := tags.Normalize(evt.Tags)
	if len(normalized) == 0 {
		return nil // silently discard
	}
	evt.Tags = normalized

	if !validDay(evt.Day) {
		evt.Day = dayKey(evt.CapturedAtMs)
	}

	// Repeat-visit suppression against the most recently stored event.
	var lastHash string
	var lastMs int64
	err := s.lastEvent.QueryRowContext(ctx).Scan(&lastHash, &lastMs)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read last event: %w", err)
	}
	if err == nil && lastHash == evt.URLHash {
		delta := evt.CapturedAtMs - lastMs
		if delta >= 0 && delta <= s.dedupeMs {
			return nil
		}
	}

	tagsJSON, err := json.Marshal(evt.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var scroll, click interface{}
	var energy interface{}
	if evt.Probe != nil {
		scroll, click, energy = evt.Probe.ScrollCount, evt.Probe.ClickCount, evt.Probe.Energy
	}

	if _, err := tx.StmtContext(ctx, s.insertEvent).ExecContext(ctx,
		evt.Day, evt.CapturedAtMs, evt.Domain, evt.URLHash, string(tagsJSON),
		scroll, click, energy,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	nowMs := s.now().UnixMilli()
	cutoffMs := nowMs - int64(s.retentionDays)*24*60*60*1000

	// Retention window: drop events older than the cutoff.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM events WHERE captured_at_ms < ?", cutoffMs,
	); err != nil {
		return fmt.Errorf("enforce retention: %w", err)
	}

	// Hard cap: evict oldest-first down to maxEvents.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM events WHERE id NOT IN (
			SELECT id FROM events ORDER BY id DESC LIMIT ?
		)`, s.maxEvents,
	); err != nil {
		return fmt.Errorf("enforce cap: %w", err)
	}

	if err := s.rebuildDaily(ctx, tx, cutoffMs); err != nil {
		return fmt.Errorf("rebuild daily aggregates: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE meta SET last_write_at_ms = ? WHERE id = 1", nowMs,
	); err != nil {
		return fmt.Errorf("touch meta: %w", err)
	}

	return tx.Commit()
}

// rebuildDaily recomputes the daily_aggs table wholesale from the retained
// event set. Buckets whose day falls outside the retention window are not
// written (defensive; retained events should already be inside it).
func (s *SQLiteStore) rebuildDaily(ctx context.Context, tx *sql.Tx, cutoffMs int64) error {
	rows, err := tx.QueryContext(ctx, "SELECT day, captured_at_ms, tags FROM events ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	type bucket struct {
		count int
		freq  map[string]int
	}
	buckets := make(map[string]*bucket)

	for rows.Next() {
		var day, tagsJSON string
		var ms int64
		if err := rows.Scan(&day, &ms, &tagsJSON); err != nil {
			return err
		}
		if !validDay(day) {
			day = dayKey(ms)
		}

		var evtTags []string
		if err := json.Unmarshal([]byte(tagsJSON), &evtTags); err != nil {
			continue // malformed row: skip, never poison the aggregate
		}

		b := buckets[day]
		if b == nil {
			b = &bucket{freq: make(map[string]int)}
			buckets[day] = b
		}
		b.count++
		for _, t := range evtTags {
			b.freq[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_aggs"); err != nil {
		return err
	}

	cutoffDay := dayKey(cutoffMs)
	for day, b := range buckets {
		if day < cutoffDay {
			continue
		}
		freqJSON, err := json.Marshal(b.freq)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO daily_aggs (day, event_count, unique_tags, tag_freq) VALUES (?, ?, ?, ?)",
			day, b.count, len(b.freq), string(freqJSON),
		); err != nil {
			return err
		}
	}

	return nil
}

// LoadEvents returns all retained events in append order. Malformed rows
// are skipped.
func (s *SQLiteStore) LoadEvents(ctx context.Context) ([]TagEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, captured_at_ms, domain, url_hash, tags, scroll_count, click_count, energy
		FROM events ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []TagEvent{}
	for rows.Next() {
		var e TagEvent
		var tagsJSON string
		var scroll, click sql.NullInt64
		var energy sql.NullFloat64
		if err := rows.Scan(
			&e.Day, &e.CapturedAtMs, &e.Domain, &e.URLHash, &tagsJSON,
			&scroll, &click, &energy,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			continue
		}
		if scroll.Valid || click.Valid || energy.Valid {
			e.Probe = &Probe{
				ScrollCount: int(scroll.Int64),
				ClickCount:  int(click.Int64),
				Energy:      energy.Float64,
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LoadDailyAggs returns the daily aggregates keyed by day. Malformed rows
// are skipped.
func (s *SQLiteStore) LoadDailyAggs(ctx context.Context) (map[string]DailyAgg, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, event_count, unique_tags, tag_freq FROM daily_aggs",
	)
	if err != nil {
		return nil, fmt.Errorf("query daily aggregates: %w", err)
	}
	defer rows.Close()

	daily := make(map[string]DailyAgg)
	for rows.Next() {
		var a DailyAgg
		var freqJSON string
		if err := rows.Scan(&a.Day, &a.EventCount, &a.UniqueTags, &freqJSON); err != nil {
			return nil, fmt.Errorf("scan daily aggregate: %w", err)
		}
		if err := json.Unmarshal([]byte(freqJSON), &a.TagFreq); err != nil {
			continue
		}
		daily[a.Day] = a
	}
	return daily, rows.Err()
}

// PruneExpired deletes events older than olderThan and rebuilds the daily
// aggregates from what remains. Returns the number of deleted events.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoffMs := olderThan.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE captured_at_ms < ?", cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}

	if err := s.rebuildDaily(ctx, tx, cutoffMs); err != nil {
		return 0, fmt.Errorf("rebuild daily aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountExpired reports how many events a prune at olderThan would delete.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE captured_at_ms < ?", olderThan.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PurgeAll deletes events, daily aggregates, and meta unconditionally,
// then recreates fresh meta so the store stays usable.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	if err := s.wipeCore(ctx); err != nil {
		return err
	}
	_, err := s.EnsureMeta(ctx)
	return err
}

// GetStats returns aggregate statistics about the store.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{SeriesCounts: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM daily_aggs").Scan(&stats.TotalDays); err != nil {
		return nil, fmt.Errorf("count days: %w", err)
	}

	if stats.TotalDays > 0 {
		err := s.db.QueryRowContext(ctx,
			"SELECT MIN(day), MAX(day) FROM daily_aggs",
		).Scan(&stats.OldestDay, &stats.NewestDay)
		if err != nil {
			return nil, fmt.Errorf("day range: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT domain, COUNT(*) AS cnt FROM events WHERE domain != '' GROUP BY domain ORDER BY cnt DESC, domain LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, err
		}
		stats.TopDomains = append(stats.TopDomains, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := s.db.QueryContext(ctx, "SELECT metric, COUNT(*) FROM samples GROUP BY metric")
	if err != nil {
		return nil, fmt.Errorf("series counts: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var metric string
		var n int64
		if err := srows.Scan(&metric, &n); err != nil {
			return nil, err
		}
		stats.SeriesCounts[metric] = n
	}

	return stats, srows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertEvent, s.lastEvent} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

// dayKey returns the local YYYY-MM-DD key for an epoch-ms timestamp.
func dayKey(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02")
}

// validDay reports whether day parses as a local YYYY-MM-DD key.
func validDay(day string) bool {
	if len(day) != 10 {
		return false
	}
	_, err := time.ParseInLocation("2006-01-02", day, time.Local)
	return err == nil
}
