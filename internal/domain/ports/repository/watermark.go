// File: internal/domain/ports/repository/watermark.go
package repository

import (
	"context"
	"time"

	"rss-digest/internal/domain/model"
)

// WatermarkRepository stores the timestamp of the last fully successful
// run, one value per workflow. Get returns domain.ErrNotFound when the
// workflow has never run; callers substitute a bounded lookback window.
// Set must never move the watermark backwards.
type WatermarkRepository interface {
	Get(ctx context.Context, workflow model.Workflow) (time.Time, error)
	Set(ctx context.Context, workflow model.Workflow, ts time.Time) error
}
