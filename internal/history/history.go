// Package history records run summaries in a local SQLite database. History
// is an observability aid: failures here are logged by the caller and never
// fail a run.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kommune     TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	agents      INTEGER NOT NULL,
	records     INTEGER NOT NULL,
	errors      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Run summarizes one end-to-end pipeline execution.
type Run struct {
	ID         string    `db:"id"`
	Kommune    string    `db:"kommune"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	// Agents is the number of agents attempted, Records the total processed
	// record count, Errors the number of agents whose crawl failed.
	Agents  int `db:"agents"`
	Records int `db:"records"`
	Errors  int `db:"errors"`
}

// Repository stores run summaries.
type Repository struct {
	db *sqlx.DB
}

// NewRepository opens (and if needed initializes) the history database.
func NewRepository(path string) (*Repository, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Record inserts one run summary. A missing ID is assigned.
func (r *Repository) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO runs (id, kommune, started_at, finished_at, agents, records, errors)
		VALUES (:id, :kommune, :started_at, :finished_at, :agents, :records, :errors)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}

	var runs []Run
	const query = `
		SELECT id, kommune, started_at, finished_at, agents, records, errors
		FROM runs ORDER BY started_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}
