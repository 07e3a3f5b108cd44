package alert

import (
	"context"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
)

var _ adapter.Alerter = (*Noop)(nil)

// Noop stands in when no alert channel is configured.
type Noop struct{}

func (Noop) Alert(ctx context.Context, workflow model.Workflow, message string) error {
	return nil
}
