package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/repository"
)

var _ repository.WatermarkRepository = (*WatermarkRepo)(nil)

// WatermarkRepo stores the per-workflow last successful run timestamp.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS workflow_watermarks (
//	    workflow   TEXT PRIMARY KEY,
//	    last_run   TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type WatermarkRepo struct {
	pool *pgxpool.Pool
}

func NewWatermarkRepo(pool *pgxpool.Pool) *WatermarkRepo {
	return &WatermarkRepo{pool: pool}
}

func (r *WatermarkRepo) Get(ctx context.Context, workflow model.Workflow) (time.Time, error) {
	const query = `SELECT last_run FROM workflow_watermarks WHERE workflow = $1;`

	var lastRun time.Time
	err := r.pool.QueryRow(ctx, query, string(workflow)).Scan(&lastRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("query watermark: %w", err)
	}
	return lastRun.UTC(), nil
}

// Set upserts the watermark but never moves it backwards; a stale writer
// racing a fresher one loses silently.
func (r *WatermarkRepo) Set(ctx context.Context, workflow model.Workflow, ts time.Time) error {
	const query = `
INSERT INTO workflow_watermarks (workflow, last_run, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (workflow) DO UPDATE
SET last_run = excluded.last_run, updated_at = now()
WHERE workflow_watermarks.last_run <= excluded.last_run;`

	if _, err := r.pool.Exec(ctx, query, string(workflow), ts.UTC()); err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
