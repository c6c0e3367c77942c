// internal/infra/database/postgres_run_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"procurement_digest_bot/internal/domain/pipeline"

	"github.com/lib/pq" // For pq.Array
)

// ErrRunNotFound is returned when no digest run has been recorded yet.
var ErrRunNotFound = fmt.Errorf("digest run not found")

const runSchema = `CREATE TABLE IF NOT EXISTS digest_runs (
    id           UUID PRIMARY KEY,
    run_day      DATE NOT NULL,
    outcome      TEXT NOT NULL,
    detail       TEXT NOT NULL DEFAULT '',
    notice_count INTEGER NOT NULL DEFAULT 0,
    image_url    TEXT NOT NULL DEFAULT '',
    recipients   TEXT[] NOT NULL DEFAULT '{}',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS digest_runs_started_at_idx ON digest_runs (started_at DESC);`

type PostgresRunRepository struct {
	db *sql.DB
}

var _ pipeline.RunRepository = (*PostgresRunRepository)(nil)

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// EnsureSchema creates the digest_runs table if it is missing.
func (r *PostgresRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, runSchema); err != nil {
		return fmt.Errorf("error creating digest_runs schema: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) SaveRun(ctx context.Context, run *pipeline.Run) error {
	query := `INSERT INTO digest_runs (id, run_day, outcome, detail, notice_count, image_url, recipients, started_at, finished_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              ON CONFLICT (id) DO UPDATE SET
                  outcome = EXCLUDED.outcome,
                  detail = EXCLUDED.detail,
                  notice_count = EXCLUDED.notice_count,
                  image_url = EXCLUDED.image_url,
                  finished_at = EXCLUDED.finished_at`
	recipients := run.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		run.ID.String(), run.Day, string(run.Outcome), run.Detail, run.NoticeCount,
		run.ImageURL, pq.Array(recipients), run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("error saving digest run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRunRepository) LatestRun(ctx context.Context) (*pipeline.Run, error) {
	query := `SELECT id, run_day, outcome, detail, notice_count, image_url, recipients, started_at, finished_at
              FROM digest_runs ORDER BY started_at DESC LIMIT 1`
	run := pipeline.Run{}
	var id, outcome string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&id, &run.Day, &outcome, &run.Detail, &run.NoticeCount,
		&run.ImageURL, pq.Array(&run.Recipients), &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting latest digest run: %w", err)
	}
	if err := run.ID.UnmarshalText([]byte(id)); err != nil {
		return nil, fmt.Errorf("error parsing digest run id %q: %w", id, err)
	}
	run.Outcome = pipeline.Outcome(outcome)
	return &run, nil
}
