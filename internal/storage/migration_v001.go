package storage

import "database/sql"

// migrateV001 creates the initial tagpivot schema. Every statement uses
// IF NOT EXISTS for idempotency. Schema migrations track the table layout
// only; a change to StoreVersion wipes stored data outright (EnsureMeta),
// so data never needs a migration path.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			day            TEXT NOT NULL,
			captured_at_ms INTEGER NOT NULL,
			domain         TEXT NOT NULL DEFAULT '',
			url_hash       TEXT NOT NULL DEFAULT '',
			tags           TEXT NOT NULL,
			scroll_count   INTEGER,
			click_count    INTEGER,
			energy         REAL
		)`,

		`CREATE TABLE IF NOT EXISTS daily_aggs (
			day         TEXT PRIMARY KEY,
			event_count INTEGER NOT NULL DEFAULT 0,
			unique_tags INTEGER NOT NULL DEFAULT 0,
			tag_freq    TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			id               INTEGER PRIMARY KEY CHECK (id = 1),
			version          INTEGER NOT NULL,
			created_at_ms    INTEGER NOT NULL,
			last_write_at_ms INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS samples (
			metric TEXT NOT NULL,
			day    TEXT NOT NULL,
			value  REAL NOT NULL,
			PRIMARY KEY (metric, day)
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_events_captured ON events(captured_at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_events_day      ON events(day)`,
		`CREATE INDEX IF NOT EXISTS idx_events_domain   ON events(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_metric  ON samples(metric, day)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
