package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is kept to the subset of SQL understood by both PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		slug       TEXT NOT NULL UNIQUE,
		topic      TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		solved_by  INTEGER NOT NULL DEFAULT 0,
		tags       TEXT NOT NULL DEFAULT '',
		statement  TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id               TEXT PRIMARY KEY,
		problem_id       TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		verdict          TEXT NOT NULL,
		submitted_at     TIMESTAMP NOT NULL,
		runtime_ms       INTEGER NOT NULL DEFAULT 0,
		memory_kb        INTEGER NOT NULL DEFAULT 0,
		language         TEXT NOT NULL,
		failed_test_case INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS submissions_user_idx ON submissions (user_id, submitted_at)`,
	`CREATE TABLE IF NOT EXISTS topic_stats (
		user_id        TEXT NOT NULL,
		topic          TEXT NOT NULL,
		solved         INTEGER NOT NULL DEFAULT 0,
		total          INTEGER NOT NULL DEFAULT 0,
		weakness_score INTEGER NOT NULL DEFAULT 0,
		updated_at     TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, topic)
	)`,
}

// Migrate creates the tables used by the repositories when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database.Migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
