package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/domain/ports/repository"
	"rss-digest/internal/infra/logging"

	"github.com/rs/zerolog"
)

// branchState enumerates the per-invocation state machine. Failed is
// terminal for the invocation but never crashes the process.
type branchState string

const (
	stateIdle       branchState = "idle"
	stateSubmitting branchState = "submitting"
	statePolling    branchState = "polling"
	stateRetrieving branchState = "retrieving"
	stateDispatched branchState = "dispatched"
	stateFailed     branchState = "failed"
)

// Locker guards against overlapping invocations of the same workflow.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Dispatcher retrieves a run's results and delivers the branch payload.
type Dispatcher interface {
	RetrieveAndDispatch(ctx context.Context, run *model.BatchRun) error
}

type OrchestratorConfig struct {
	PollInterval time.Duration
	PollBudget   time.Duration
	Lookback     time.Duration
	LockTTL      time.Duration
}

// Orchestrator runs the submit → poll-until-done → retrieve sequence once
// per branch and runs both branches concurrently with full isolation: a
// failure in one never aborts or blocks the other.
type Orchestrator struct {
	feeds       adapter.FeedSource
	submitter   *Submitter
	poller      *Poller
	dispatchers map[model.Workflow]Dispatcher
	watermarks  repository.WatermarkRepository
	locks       Locker
	alerter     adapter.Alerter
	clock       Clock
	metrics     Metrics
	cfg         OrchestratorConfig
	log         *zerolog.Logger
}

func NewOrchestrator(
	feeds adapter.FeedSource,
	submitter *Submitter,
	poller *Poller,
	emailDispatcher Dispatcher,
	podcastDispatcher Dispatcher,
	watermarks repository.WatermarkRepository,
	locks Locker,
	alerter adapter.Alerter,
	clock Clock,
	m Metrics,
	cfg OrchestratorConfig,
	logger *zerolog.Logger,
) *Orchestrator {
	l := logger.With().Str("component", "Orchestrator").Logger()
	if m == nil {
		m = NopMetrics{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = time.Hour
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 3 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Hour
	}
	return &Orchestrator{
		feeds:     feeds,
		submitter: submitter,
		poller:    poller,
		dispatchers: map[model.Workflow]Dispatcher{
			model.WorkflowEmail:   emailDispatcher,
			model.WorkflowPodcast: podcastDispatcher,
		},
		watermarks: watermarks,
		locks:      locks,
		alerter:    alerter,
		clock:      clock,
		metrics:    m,
		cfg:        cfg,
		log:        &l,
	}
}

// RunAll fires both branches as independent concurrent tasks and waits
// for both. Errors are handled inside RunBranch; nothing here cancels the
// sibling branch.
func (o *Orchestrator) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, wf := range []model.Workflow{model.WorkflowEmail, model.WorkflowPodcast} {
		wg.Add(1)
		go func(wf model.Workflow) {
			defer wg.Done()
			_ = o.RunBranch(ctx, wf)
		}(wf)
	}
	wg.Wait()
}

// RunBranch executes the full state machine for one workflow. On any
// failure the watermark is left untouched so the next scheduled
// invocation retries from the same point.
func (o *Orchestrator) RunBranch(ctx context.Context, workflow model.Workflow) error {
	if !workflow.Valid() {
		return fmt.Errorf("%w: workflow %q", domain.ErrInvalidArgument, workflow)
	}
	ctx = logging.WithWorkflow(ctx, string(workflow))
	log := *logging.With(ctx, o.log)
	defer logging.TraceDuration(&log, "Orchestrator.RunBranch")()

	token, err := o.locks.TryLock(ctx, runLockKey(workflow), o.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			// Genuine contention: a sibling invocation holds the lock,
			// skipping quietly is the intended behavior.
			log.Warn().Msg("workflow lock held; skipping this invocation")
			o.metrics.BranchRun(string(workflow), "locked")
			return domain.ErrRunInProgress
		}
		// Anything else (a lock-store outage, say) must not masquerade
		// as contention: it is a branch failure that alerts.
		return o.fail(ctx, &log, workflow, stateIdle, nil, 0, fmt.Errorf("acquiring run lock: %w", err))
	}
	defer func() {
		if uerr := o.locks.Unlock(context.Background(), runLockKey(workflow), token); uerr != nil {
			log.Warn().Err(uerr).Msg("failed to release workflow lock; it will expire")
		}
	}()

	start := o.clock.Now()
	state := stateIdle

	since, err := o.watermarks.Get(ctx, workflow)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Msg("watermark read failed; falling back to lookback window")
		}
		since = start.Add(-o.cfg.Lookback)
	}
	log.Info().Time("since", since).Msg("starting branch run")

	items, err := o.feeds.ItemsSince(ctx, since)
	if err != nil {
		return o.fail(ctx, &log, workflow, state, nil, 0, fmt.Errorf("feed retrieval: %w", err))
	}

	state = o.transition(&log, state, stateSubmitting)
	run, err := o.submitter.Submit(ctx, workflow, start, items)
	if err != nil {
		return o.fail(ctx, &log, workflow, state, nil, len(items), err)
	}
	ctx = logging.WithRunID(ctx, run.RunID)
	log = *logging.With(ctx, o.log)
	if run.Empty() {
		// Nothing new costs nothing downstream: no provider call was
		// made and the watermark stays where it is.
		state = o.transition(&log, state, stateDispatched)
		o.metrics.BranchRun(string(workflow), "empty")
		return nil
	}

	state = o.transition(&log, state, statePolling)
	if err := o.pollUntilTerminal(ctx, &log, run); err != nil {
		return o.fail(ctx, &log, workflow, state, run.BatchIDs(), len(items), err)
	}

	state = o.transition(&log, state, stateRetrieving)
	if err := o.dispatchers[workflow].RetrieveAndDispatch(ctx, run); err != nil {
		return o.fail(ctx, &log, workflow, state, run.BatchIDs(), len(items), err)
	}

	// The watermark advances to the submission instant, not time-of-
	// dispatch, so items published mid-flight land in the next run.
	if err := o.watermarks.Set(ctx, workflow, run.SubmittedAt); err != nil {
		return o.fail(ctx, &log, workflow, state, run.BatchIDs(), len(items),
			fmt.Errorf("watermark write did not confirm: %w", err))
	}

	state = o.transition(&log, state, stateDispatched)
	elapsed := o.clock.Now().Sub(start)
	o.metrics.BranchRun(string(workflow), "dispatched")
	o.metrics.BranchDuration(string(workflow), elapsed.Seconds())
	log.Info().
		Int("articles", len(items)).
		Int("jobs", len(run.Jobs)).
		Dur("duration", elapsed).
		Msg("branch dispatched")
	return nil
}

// pollUntilTerminal drives the fixed-interval poll loop until every job
// in the run is terminal or the wall-clock budget runs out. Individual
// poll errors are transient: the budget bounds how long they can recur.
func (o *Orchestrator) pollUntilTerminal(ctx context.Context, log *zerolog.Logger, run *model.BatchRun) error {
	deadline := o.clock.Now().Add(o.cfg.PollBudget)
	for {
		for i := range run.Jobs {
			if run.Jobs[i].Status.Terminal() {
				continue
			}
			updated, err := o.poller.Poll(ctx, run.Jobs[i])
			if err != nil {
				log.Warn().Err(err).Str("batch_id", run.Jobs[i].BatchID).Msg("poll round-trip failed; will retry")
				continue
			}
			run.Jobs[i] = updated
		}
		if run.AllTerminal() {
			return nil
		}
		if !o.clock.Now().Before(deadline) {
			// The stale handle is abandoned, not resumed: the next
			// scheduled invocation starts a fresh, independent job.
			return domain.ErrBatchTimeout
		}
		if err := o.clock.Sleep(ctx, o.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) transition(log *zerolog.Logger, from, to branchState) branchState {
	log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
	return to
}

func (o *Orchestrator) fail(ctx context.Context, log *zerolog.Logger, workflow model.Workflow, state branchState, batchIDs []string, items int, err error) error {
	o.transition(log, state, stateFailed)
	branchErr := &domain.BranchError{
		Workflow: string(workflow),
		BatchIDs: batchIDs,
		Items:    items,
		Err:      err,
	}
	log.Error().Err(err).Strs("batch_ids", batchIDs).Int("articles", items).Msg("branch failed")
	o.metrics.BranchRun(string(workflow), "failed")
	if aerr := o.alerter.Alert(ctx, workflow, branchErr.Error()); aerr != nil {
		log.Warn().Err(aerr).Msg("failed to deliver alert")
	}
	return branchErr
}

func runLockKey(workflow model.Workflow) string {
	return "digest_run:" + string(workflow)
}
