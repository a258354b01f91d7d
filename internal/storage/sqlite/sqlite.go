// Package sqlite stores the run history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.RunRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates the database if needed, migrates it and returns the repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if _, err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a run with its processes.
func (r *Repository) CreateRun(ctx context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, config_file, tunnel_enabled, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ConfigFile,
		run.TunnelEnabled,
		run.Status,
		run.StartedAt.UnixMilli(),
		nullableMillis(run.FinishedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	for _, p := range run.Processes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_processes (run_id, idx, name, command, state, exit_code, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			p.Index,
			p.Name,
			p.Command,
			p.State,
			p.ExitCode,
			nullableMillis(p.StartedAt),
			nullableMillis(p.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("could not insert run process %d: %w", p.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// GetRun returns a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, config_file, tunnel_enabled, status, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	procs, err := r.processes(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Processes = procs

	return &run, nil
}

// ListRuns returns the runs newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := `
		SELECT id, config_file, tunnel_enabled, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range runs {
		procs, err := r.processes(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Processes = procs
	}

	return runs, nil
}

func (r *Repository) processes(ctx context.Context, runID string) ([]model.ProcessStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT idx, name, command, state, exit_code, started_at, finished_at
		FROM run_processes
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query run processes: %w", err)
	}
	defer rows.Close()

	var procs []model.ProcessStatus
	for rows.Next() {
		var p model.ProcessStatus
		var startedAt, finishedAt sql.NullInt64
		if err := rows.Scan(&p.Index, &p.Name, &p.Command, &p.State, &p.ExitCode, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("could not scan run process: %w", err)
		}
		p.StartedAt = timeFromMillis(startedAt)
		p.FinishedAt = timeFromMillis(finishedAt)
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return procs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.RunRecord, error) {
	var run model.RunRecord
	var startedAt int64
	var finishedAt sql.NullInt64

	err := s.Scan(&run.ID, &run.ConfigFile, &run.TunnelEnabled, &run.Status, &startedAt, &finishedAt)
	if err != nil {
		return model.RunRecord{}, err
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.FinishedAt = timeFromMillis(finishedAt)

	return run, nil
}

func nullableMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timeFromMillis(ms sql.NullInt64) time.Time {
	if !ms.Valid {
		return time.Time{}
	}
	return time.UnixMilli(ms.Int64).UTC()
}
