package usecase

import (
	"context"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Poller performs one status round-trip per call. It never blocks or
// retries internally; the orchestrator owns the wait-then-poll loop.
type Poller struct {
	batches adapter.BatchClient
	metrics Metrics
	log     *zerolog.Logger
}

func NewPoller(batches adapter.BatchClient, m Metrics, logger *zerolog.Logger) *Poller {
	l := logger.With().Str("component", "Poller").Logger()
	if m == nil {
		m = NopMetrics{}
	}
	return &Poller{batches: batches, metrics: m, log: &l}
}

// Poll returns an updated copy of job with the latest observed status.
// The input job is not mutated.
func (p *Poller) Poll(ctx context.Context, job model.BatchJob) (model.BatchJob, error) {
	p.metrics.BatchPoll(string(job.Workflow))
	status, err := p.batches.GetBatchStatus(ctx, job.BatchID)
	if err != nil {
		return job, err
	}
	if status != job.Status {
		p.log.Debug().
			Str("workflow", string(job.Workflow)).
			Str("batch_id", job.BatchID).
			Str("from", string(job.Status)).
			Str("to", string(status)).
			Msg("batch status transition")
	}
	updated := job
	updated.Status = status
	return updated, nil
}
