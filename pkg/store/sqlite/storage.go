package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const RunsTableSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT NOT NULL PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		threshold TEXT NOT NULL,
		scanned INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		excluded INTEGER NOT NULL,
		failure_type TEXT NOT NULL,
		error TEXT NULL
	);
`

const RunCandidatesTableSchema = `
	CREATE TABLE IF NOT EXISTS run_candidates (
		run_id TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		user_principal_name TEXT,
		display_name TEXT,
		account_enabled INTEGER NOT NULL,
		last_activity TEXT NULL,
		PRIMARY KEY (run_id, user_id)
	);
`

const RunsStartedAtIndex = `CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);`

var bootQueries = []string{
	RunsTableSchema,
	RunCandidatesTableSchema,
	RunsStartedAtIndex,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	if settings.DbPath == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", settings.DbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; concurrent runs queue on the pool.
	db.SetMaxOpenConns(1)

	for _, query := range bootQueries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return db, nil
}
