package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	command     TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_units (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	dataset      TEXT NOT NULL,
	dataset_type TEXT NOT NULL,
	subject      TEXT NOT NULL,
	state        TEXT NOT NULL,
	detail       TEXT,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_run_units_run_id ON run_units(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, command, outputDir string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, command, output_dir, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, command, outputDir, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Command:   command,
		OutputDir: outputDir,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, command, output_dir, status, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Command != "" {
		args = append(args, filter.Command)
		query += placeholder(` AND command = `, len(args))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholder(` LIMIT `, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += placeholder(` OFFSET `, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var finished *time.Time
		if err := rows.Scan(&run.ID, &run.Command, &run.OutputDir, &run.Status,
			&run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if finished != nil {
			run.FinishedAt = *finished
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RecordUnit(ctx context.Context, runID string, unit model.Unit) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_units (id, run_id, dataset, dataset_type, subject, state, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), runID, unit.Dataset, unit.DatasetType, unit.Subject,
		string(unit.State), unit.Detail, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: record unit for run %s", runID)
}

func (s *PostgresStore) ListUnits(ctx context.Context, runID string) ([]model.Unit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, dataset, dataset_type, subject, state, detail, recorded_at
		 FROM run_units WHERE run_id = $1 ORDER BY recorded_at, dataset, subject`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list units for run %s", runID)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		var unit model.Unit
		var detail *string
		if err := rows.Scan(&unit.ID, &unit.RunID, &unit.Dataset, &unit.DatasetType,
			&unit.Subject, &unit.State, &detail, &unit.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unit")
		}
		if detail != nil {
			unit.Detail = *detail
		}
		units = append(units, unit)
	}
	return units, eris.Wrap(rows.Err(), "postgres: list units iterate")
}

func placeholder(prefix string, n int) string {
	return prefix + "$" + strconv.Itoa(n)
}
