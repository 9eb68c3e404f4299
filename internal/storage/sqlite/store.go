// Package sqlite persists simulation runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/combatsim/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/combatsim/internal/storage"
	"github.com/louisbranch/combatsim/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

// Open opens a run SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if _, err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun persists a run and its results in one transaction.
func (s *Store) RecordRun(ctx context.Context, run storage.Run, results []storage.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if len(run.Studies) == 0 {
		return fmt.Errorf("run studies are required")
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("run start time is required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	studies, err := json.Marshal(run.Studies)
	if err != nil {
		return fmt.Errorf("encode studies: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
	id,
	studies,
	seed,
	standoff_trials,
	duel_trials,
	workers,
	started_at,
	finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.ID,
		string(studies),
		strconv.FormatUint(run.Seed, 10),
		run.StandoffTrials,
		run.DuelTrials,
		run.Workers,
		run.StartedAt.UTC().UnixMilli(),
		run.FinishedAt.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO results (run_id, position, path, label, value, text)
VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer stmt.Close()

	for i, result := range results {
		if _, err := stmt.ExecContext(ctx, run.ID, i, result.Path, result.Label, result.Value, result.Text); err != nil {
			return fmt.Errorf("record result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record run: %w", err)
	}
	return nil
}

const runColumns = `
	id,
	studies,
	seed,
	standoff_trials,
	duel_trials,
	workers,
	started_at,
	finished_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (storage.Run, error) {
	var (
		run        storage.Run
		studies    string
		seed       string
		startedAt  int64
		finishedAt int64
	)
	if err := row.Scan(
		&run.ID,
		&studies,
		&seed,
		&run.StandoffTrials,
		&run.DuelTrials,
		&run.Workers,
		&startedAt,
		&finishedAt,
	); err != nil {
		return storage.Run{}, err
	}
	if err := json.Unmarshal([]byte(studies), &run.Studies); err != nil {
		return storage.Run{}, fmt.Errorf("decode studies for %s: %w", run.ID, err)
	}
	parsed, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return storage.Run{}, fmt.Errorf("decode seed for %s: %w", run.ID, err)
	}
	run.Seed = parsed
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return run, nil
}

// GetRun returns one run record.
func (s *Store) GetRun(ctx context.Context, runID string) (storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return storage.Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Run{}, fmt.Errorf("storage is not configured")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return storage.Run{}, fmt.Errorf("run id is required")
	}

	run, err := scanRun(s.sqlDB.QueryRowContext(ctx, "SELECT"+runColumns+"FROM runs WHERE id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Run{}, fmt.Errorf("%w: %s", storage.ErrRunNotFound, runID)
	}
	if err != nil {
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns lists newest-first run records.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT"+runColumns+`FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]storage.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListResults lists the results of one run in tree order.
func (s *Store) ListResults(ctx context.Context, runID string) ([]storage.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}

	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT run_id, position, path, label, value, text
FROM results
WHERE run_id = ?
ORDER BY position
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []storage.Result
	for rows.Next() {
		var result storage.Result
		if err := rows.Scan(
			&result.RunID,
			&result.Position,
			&result.Path,
			&result.Label,
			&result.Value,
			&result.Text,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
