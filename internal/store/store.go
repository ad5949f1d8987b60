// Package store records simulation and stitch runs in PostgreSQL.
//
// The store is optional: the tools and the server work without it, and only
// keep a history when DATABASE_URL is set.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Kind names the job a run executed.
type Kind string

const (
	KindStitch    Kind = "stitch"
	KindHistogram Kind = "histogram"
	KindCube      Kind = "cube"
)

// DefaultListLimit and MaxListLimit bound ListRuns.
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// Run is one recorded job.
type Run struct {
	ID        uuid.UUID      `json:"id"`
	Kind      Kind           `json:"kind"`
	Params    map[string]any `json:"params"`
	Rows      int            `json:"rows"`
	Output    string         `json:"output,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
	CreatedAt time.Time      `json:"created_at"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	params      JSONB NOT NULL DEFAULT '{}',
	rows        INTEGER NOT NULL DEFAULT 0,
	output      TEXT NOT NULL DEFAULT '',
	duration_ns BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);
`

const runColumns = `id, kind, params, rows, output, duration_ns, created_at`

// Store reads and writes runs.
type Store struct {
	db  DBTX
	now func() time.Time
}

// New returns a store on db.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema creates the runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	return nil
}

// RecordRun inserts run, assigning its id and creation time.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	run.ID = uuid.New()
	run.CreatedAt = s.now().UTC()
	if run.Params == nil {
		run.Params = map[string]any{}
	}

	params, err := json.Marshal(run.Params)
	if err != nil {
		return Run{}, fmt.Errorf("encode run params: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Kind), params, run.Rows, run.Output, int64(run.Duration), run.CreatedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record %s run: %w", run.Kind, err)
	}
	return run, nil
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. Output is not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, kind, params, rows, '' AS output, duration_ns, created_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// DeleteRunsBefore removes runs created before cutoff and reports how many
// were deleted.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (Run, error) {
	var (
		run      Run
		kind     string
		params   []byte
		duration int64
	)
	if err := row.Scan(&run.ID, &kind, &params, &run.Rows, &run.Output, &duration, &run.CreatedAt); err != nil {
		return Run{}, err
	}
	run.Kind = Kind(kind)
	run.Duration = time.Duration(duration)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return Run{}, fmt.Errorf("decode run params: %w", err)
		}
	}
	return run, nil
}
