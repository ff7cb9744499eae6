package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/store"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite"
	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

// timeLayout has fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store keeps the history of classification runs and the accounts each run
// flagged.
type Store interface {
	AddRun(ctx context.Context, run *store.Run) (string, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	GetRun(ctx context.Context, id string) (*store.Run, error)
}

type runStore struct {
	db    *sql.DB
	newID func() string
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{
		db:    db,
		newID: uuid.NewString,
	}, nil
}

// AddRun assigns the run an id and writes it with its candidates. It joins a
// transaction carried by ctx, otherwise it opens and commits its own. A
// candidate repeated within the run is stored once.
func (s *runStore) AddRun(ctx context.Context, run *store.Run) (string, error) {
	if run == nil {
		return "", fmt.Errorf("run is nil")
	}

	tx := sqlite.GetTransaction(ctx)
	owned := tx == nil
	if owned {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()
	}

	id := s.newID()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, kind, started_at, elapsed_ms, threshold,
			scanned, matched, excluded, failure_type, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		run.Kind,
		run.StartedAt.UTC().Format(timeLayout),
		run.ElapsedMs,
		run.Threshold.UTC().Format(timeLayout),
		run.Scanned,
		run.Matched,
		run.Excluded,
		run.FailureType,
		run.Error,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if len(run.Candidates) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO run_candidates (
				run_id, user_id, user_principal_name, display_name, account_enabled, last_activity
			) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range run.Candidates {
			if _, err := stmt.ExecContext(ctx,
				id,
				c.UserID,
				c.UserPrincipalName,
				c.DisplayName,
				c.AccountEnabled,
				formatTime(c.LastActivity),
			); err != nil {
				return "", fmt.Errorf("insert candidate %s: %w", c.UserID, err)
			}
		}
	}

	if owned {
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit transaction: %w", err)
		}
	}

	run.ID = id
	return id, nil
}

// ListRuns returns the most recent runs first, without candidates.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, started_at, elapsed_ms, threshold, scanned, matched, excluded, failure_type, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	result := make([]store.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

func (s *runStore) GetRun(ctx context.Context, id string) (*store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, started_at, elapsed_ms, threshold, scanned, matched, excluded, failure_type, error
		FROM runs
		WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, user_principal_name, display_name, account_enabled, last_activity
		FROM run_candidates
		WHERE run_id = ?
		ORDER BY user_principal_name, user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	run.Candidates = make([]store.RunCandidate, 0)
	for rows.Next() {
		var (
			c            store.RunCandidate
			upn, name    sql.NullString
			lastActivity sql.NullString
		)
		if err := rows.Scan(&c.UserID, &upn, &name, &c.AccountEnabled, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.UserPrincipalName = upn.String
		c.DisplayName = name.String
		if lastActivity.Valid {
			t, err := time.Parse(timeLayout, lastActivity.String)
			if err != nil {
				return nil, fmt.Errorf("parse last activity: %w", err)
			}
			c.LastActivity = &t
		}
		run.Candidates = append(run.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*store.Run, error) {
	var (
		run                  store.Run
		startedAt, threshold string
		runErr               sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.Kind,
		&startedAt,
		&run.ElapsedMs,
		&threshold,
		&run.Scanned,
		&run.Matched,
		&run.Excluded,
		&run.FailureType,
		&runErr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.Threshold, err = time.Parse(timeLayout, threshold); err != nil {
		return nil, fmt.Errorf("parse threshold: %w", err)
	}
	if runErr.Valid {
		run.Error = &runErr.String
	}
	return &run, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
