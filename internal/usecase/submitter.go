package usecase

import (
	"context"
	"fmt"
	"time"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// SubmitterConfig carries the per-workflow submission knobs.
type SubmitterConfig struct {
	EmailBatchSize   int
	EmailMaxTokens   int
	PodcastMaxTokens int
	TokenCeiling     int
	Categories       []string
	SpeakerA         string
	SpeakerB         string
}

// Submitter builds bounded-size batch groups and submits one provider
// batch per group, returning a run that tracks every job handle.
type Submitter struct {
	batches adapter.BatchClient
	metrics Metrics
	cfg     SubmitterConfig
	log     *zerolog.Logger
}

func NewSubmitter(batches adapter.BatchClient, m Metrics, cfg SubmitterConfig, logger *zerolog.Logger) *Submitter {
	l := logger.With().Str("component", "Submitter").Logger()
	if m == nil {
		m = NopMetrics{}
	}
	if cfg.EmailBatchSize <= 0 {
		cfg.EmailBatchSize = 25
	}
	if cfg.EmailMaxTokens <= 0 {
		cfg.EmailMaxTokens = 8192
	}
	if cfg.PodcastMaxTokens <= 0 {
		cfg.PodcastMaxTokens = 4000
	}
	return &Submitter{batches: batches, metrics: m, cfg: cfg, log: &l}
}

// Submit partitions items and creates the provider jobs for one branch
// invocation. asOf is the instant the caller captured before querying
// the feed; it becomes the run's submission time (and eventually the
// watermark) so items published mid-run are never skipped. An empty
// items list is not an error: it yields a run with zero jobs so the
// branch completes without any provider call.
func (s *Submitter) Submit(ctx context.Context, workflow model.Workflow, asOf time.Time, items []model.Article) (*model.BatchRun, error) {
	run := &model.BatchRun{
		RunID:       ulid.Make().String(),
		Workflow:    workflow,
		SubmittedAt: asOf,
		Items:       items,
	}
	if len(items) == 0 {
		s.log.Info().Str("workflow", string(workflow)).Msg("no new articles; short-circuiting run")
		return run, nil
	}

	var groups [][]model.Article
	if workflow == model.WorkflowPodcast {
		// The script is generated from the full aggregate, one request.
		groups = [][]model.Article{items}
	} else {
		groups = splitIntoGroups(items, s.cfg.EmailBatchSize)
	}

	for idx, group := range groups {
		req := s.buildRequest(workflow, idx, group)
		batchID, err := s.batches.CreateBatch(ctx, []adapter.BatchRequest{req})
		if err != nil {
			return nil, fmt.Errorf("%w: group %d of %d: %v", domain.ErrSubmissionRejected, idx+1, len(groups), err)
		}
		run.Jobs = append(run.Jobs, model.BatchJob{
			BatchID:     batchID,
			Workflow:    workflow,
			Status:      model.BatchStatusSubmitted,
			SubmittedAt: run.SubmittedAt,
			ItemIDs:     itemIDs(group),
		})
		s.log.Info().
			Str("workflow", string(workflow)).
			Str("batch_id", batchID).
			Int("group", idx+1).
			Int("groups", len(groups)).
			Int("articles", len(group)).
			Msg("submitted batch job")
	}

	s.metrics.BatchJobsSubmitted(string(workflow), len(run.Jobs))
	return run, nil
}

func (s *Submitter) buildRequest(workflow model.Workflow, idx int, group []model.Article) adapter.BatchRequest {
	if workflow == model.WorkflowPodcast {
		return adapter.BatchRequest{
			CustomID:  "podcast-script",
			Prompt:    buildPodcastPrompt(group, s.cfg.SpeakerA, s.cfg.SpeakerB),
			MaxTokens: s.cfg.PodcastMaxTokens,
		}
	}

	prompt := buildCategorizationPrompt(group, s.cfg.Categories, descriptionMaxLength)
	if s.cfg.TokenCeiling > 0 {
		if est := estimateTokens(prompt); est > s.cfg.TokenCeiling {
			// Squeeze descriptions harder rather than rejecting the group.
			s.log.Warn().Int("estimated_tokens", est).Int("ceiling", s.cfg.TokenCeiling).
				Msg("prompt over token ceiling; truncating descriptions")
			prompt = buildCategorizationPrompt(group, s.cfg.Categories, descriptionMaxLength/2)
		}
	}
	return adapter.BatchRequest{
		CustomID:  fmt.Sprintf("email-group-%d", idx),
		Prompt:    prompt,
		MaxTokens: s.cfg.EmailMaxTokens,
	}
}

func splitIntoGroups(items []model.Article, size int) [][]model.Article {
	var groups [][]model.Article
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end])
	}
	return groups
}

func itemIDs(items []model.Article) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}
