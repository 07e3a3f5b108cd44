package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Runner is the orchestration surface the worker drives.
type Runner interface {
	RunAll(ctx context.Context)
}

// DigestWorker fires the full digest run on a fixed interval. Each tick
// gets its own deadline so a wedged run cannot block the next one
// forever.
type DigestWorker struct {
	interval   time.Duration
	runTimeout time.Duration
	runner     Runner
	log        *zerolog.Logger
}

func NewDigestWorker(interval, runTimeout time.Duration, runner Runner, logger *zerolog.Logger) *DigestWorker {
	compLog := logger.With().Str("component", "DigestWorker").Logger()
	return &DigestWorker{
		interval:   interval,
		runTimeout: runTimeout,
		runner:     runner,
		log:        &compLog,
	}
}

func (w *DigestWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting digest worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping digest worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *DigestWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	start := time.Now()
	w.runner.RunAll(runCtx)
	w.log.Info().Dur("took", time.Since(start)).Msg("digest run finished")
}
