// Package history records hostspec runs in a SQLite database so past
// results can be listed and compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	suite       TEXT NOT NULL,
	file        TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS checks (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	control  TEXT NOT NULL,
	subject  TEXT NOT NULL,
	operator TEXT NOT NULL,
	status   TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	message  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run is one recorded suite execution.
type Run struct {
	ID       string
	Suite    string
	File     string
	Started  time.Time
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// CheckRow is one recorded check outcome.
type CheckRow struct {
	Position int
	Control  string
	Subject  string
	Operator string
	Status   string
	Reason   string
	Message  string
}

// Store represents a history database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database named by connectionString and applies
// the schema. Accepted forms are a plain path, sqlite:path and sqlite://path.
func Open(ctx context.Context, connectionString string) (*Store, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores result and every check outcome in one transaction and
// returns the new run ID.
func (s *Store) Record(ctx context.Context, result *runner.RunResult) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	started := result.Started
	if started.IsZero() {
		started = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, suite, file, started_at, duration_ms, passed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, result.Suite, result.File, started.UTC().Format(time.RFC3339Nano),
		result.Duration.Milliseconds(), result.Passed, result.Failed, result.Skipped)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO checks (run_id, position, control, subject, operator, status, reason, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare check insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	insert := func(cr *runner.ControlResult, operator, status, reason, message string) error {
		pos++
		_, err := stmt.ExecContext(ctx, id, pos, cr.Name(), cr.Subject, operator, status, reason, message)
		return err
	}

	for _, cr := range result.Results {
		if cr.Skipped {
			for _, exp := range cr.Expectations {
				if err := insert(cr, exp, StatusSkipped, "", cr.SkipReason); err != nil {
					return "", fmt.Errorf("insert check: %w", err)
				}
			}
			continue
		}
		for _, c := range cr.Checks {
			status := StatusPassed
			if !c.Passed {
				status = StatusFailed
			}
			if err := insert(cr, c.Operator, status, c.Reason.String(), c.Message); err != nil {
				return "", fmt.Errorf("insert check: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, suite, file, started_at, duration_ms, passed, failed, skipped
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &r.Suite, &r.File, &started, &ms, &r.Passed, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Started, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %s: invalid start time: %w", r.ID, err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Checks returns the recorded checks of one run in evaluation order.
func (s *Store) Checks(ctx context.Context, runID string) ([]CheckRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, control, subject, operator, status, reason, message
		 FROM checks WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []CheckRow
	for rows.Next() {
		var c CheckRow
		if err := rows.Scan(&c.Position, &c.Control, &c.Subject, &c.Operator, &c.Status, &c.Reason, &c.Message); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	switch {
	case connStr == "":
		return "", fmt.Errorf("empty history database path")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		return "", fmt.Errorf("unsupported database scheme: %s", connStr[:strings.Index(connStr, "://")])
	}
	return connStr, nil
}
