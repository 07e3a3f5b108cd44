//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/usecase"
)

func TestSubmitter_Submit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	asOf := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("sixty email items split into three bounded groups", func(t *testing.T) {
		batches := newFakeBatchClient()
		sub := usecase.NewSubmitter(batches, usecase.NopMetrics{}, usecase.SubmitterConfig{EmailBatchSize: 25}, logger)

		run, err := sub.Submit(ctx, model.WorkflowEmail, asOf, makeArticles(60))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(run.Jobs) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(run.Jobs))
		}
		if !run.SubmittedAt.Equal(asOf) {
			t.Errorf("run submitted at %v, want the caller-supplied instant %v", run.SubmittedAt, asOf)
		}
		wantSizes := []int{25, 25, 10}
		for i, job := range run.Jobs {
			if len(job.ItemIDs) != wantSizes[i] {
				t.Errorf("job %d carries %d items, want %d", i, len(job.ItemIDs), wantSizes[i])
			}
			if job.Status != model.BatchStatusSubmitted {
				t.Errorf("job %d status = %s, want submitted", i, job.Status)
			}
			if !job.SubmittedAt.Equal(run.SubmittedAt) {
				t.Errorf("job %d submission time diverges from the run's", i)
			}
		}
		if batches.createdBatches() != 3 {
			t.Errorf("expected one provider batch per group, got %d", batches.createdBatches())
		}
	})

	t.Run("podcast always submits a single aggregate request", func(t *testing.T) {
		batches := newFakeBatchClient()
		sub := usecase.NewSubmitter(batches, usecase.NopMetrics{}, usecase.SubmitterConfig{EmailBatchSize: 25}, logger)

		run, err := sub.Submit(ctx, model.WorkflowPodcast, asOf, makeArticles(60))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(run.Jobs) != 1 {
			t.Fatalf("expected 1 job, got %d", len(run.Jobs))
		}
		if len(run.Jobs[0].ItemIDs) != 60 {
			t.Errorf("expected all 60 items in the one job, got %d", len(run.Jobs[0].ItemIDs))
		}
		if batches.created[0][0].CustomID != "podcast-script" {
			t.Errorf("custom id = %q, want podcast-script", batches.created[0][0].CustomID)
		}
	})

	t.Run("empty input yields an empty run with no provider call", func(t *testing.T) {
		batches := newFakeBatchClient()
		sub := usecase.NewSubmitter(batches, usecase.NopMetrics{}, usecase.SubmitterConfig{}, logger)

		run, err := sub.Submit(ctx, model.WorkflowEmail, asOf, nil)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !run.Empty() {
			t.Error("expected an empty run")
		}
		if batches.createdBatches() != 0 {
			t.Errorf("expected no provider calls, got %d", batches.createdBatches())
		}
	})

	t.Run("provider rejection surfaces as submission error", func(t *testing.T) {
		batches := newFakeBatchClient()
		batches.CreateBatchFunc = func(ctx context.Context, reqs []adapter.BatchRequest) (string, error) {
			return "", errors.New("overloaded")
		}
		sub := usecase.NewSubmitter(batches, usecase.NopMetrics{}, usecase.SubmitterConfig{}, logger)

		_, err := sub.Submit(ctx, model.WorkflowEmail, asOf, makeArticles(5))
		if !errors.Is(err, domain.ErrSubmissionRejected) {
			t.Fatalf("expected ErrSubmissionRejected, got: %v", err)
		}
	})
}
