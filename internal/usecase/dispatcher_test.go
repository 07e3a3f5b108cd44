//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/usecase"
)

func endedRun(items []model.Article) *model.BatchRun {
	return &model.BatchRun{
		RunID:       "run-1",
		Workflow:    model.WorkflowEmail,
		SubmittedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Jobs: []model.BatchJob{{
			BatchID:  "batch-1",
			Workflow: model.WorkflowEmail,
			Status:   model.BatchStatusEnded,
			ItemIDs:  itemIDsOf(items),
		}},
		Items: items,
	}
}

func itemIDsOf(items []model.Article) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestEmailDispatcher_RetrieveAndDispatch(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	const categorized = `{"categories":{"Technology":[
		{"id":"item-0","title":"Article 0","link":"https://example.com/0","summary":"Summary zero.","pubdate":"Sun, 01 Jun 2025 07:00:00 UTC","related_articles":[]},
		{"id":"item-1","title":"Article 1","link":"https://example.com/1","summary":"Summary one.","pubdate":"Sun, 01 Jun 2025 07:30:00 UTC","related_articles":["Article 0"]}
	]}}`

	t.Run("categorized and missing items both land in the digest", func(t *testing.T) {
		items := makeArticles(3)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			return []adapter.BatchResult{{CustomID: "email-group-0", Succeeded: true, Text: categorized}}, nil
		}
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		if err := disp.RetrieveAndDispatch(ctx, endedRun(items)); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if sender.sent() != 1 {
			t.Fatalf("expected 1 email, got %d", sender.sent())
		}
		body := sender.bodies[0]
		// item-2 had no result row; it must still appear, demoted.
		for _, title := range []string{"Article 0", "Article 1", "Article 2"} {
			if !strings.Contains(body, title) {
				t.Errorf("digest body is missing %q", title)
			}
		}
		if !strings.Contains(body, model.CategoryUncategorized) {
			t.Error("expected the demoted item under the fallback section")
		}
	})

	t.Run("markdown-fenced JSON is tolerated", func(t *testing.T) {
		items := makeArticles(2)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			text := "Here is the result:\n```json\n" + categorized + "\n```\n"
			return []adapter.BatchResult{{CustomID: "email-group-0", Succeeded: true, Text: text}}, nil
		}
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		if err := disp.RetrieveAndDispatch(ctx, endedRun(items)); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(sender.bodies[0], "Summary one.") {
			t.Error("expected categorized summary in the digest body")
		}
	})

	t.Run("priority categories precede the fallback section", func(t *testing.T) {
		items := makeArticles(3)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			return []adapter.BatchResult{{CustomID: "email-group-0", Succeeded: true, Text: categorized}}, nil
		}
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		if err := disp.RetrieveAndDispatch(ctx, endedRun(items)); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		body := sender.bodies[0]
		techIdx := strings.Index(body, "Technology")
		fallbackIdx := strings.Index(body, model.CategoryUncategorized)
		if techIdx < 0 || fallbackIdx < 0 || techIdx > fallbackIdx {
			t.Errorf("expected Technology section before %s (tech=%d fallback=%d)", model.CategoryUncategorized, techIdx, fallbackIdx)
		}
	})

	t.Run("unparseable group response demotes its items instead of failing", func(t *testing.T) {
		items := makeArticles(2)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			return []adapter.BatchResult{{CustomID: "email-group-0", Succeeded: true, Text: "sorry, I cannot help with that"}}, nil
		}
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		if err := disp.RetrieveAndDispatch(ctx, endedRun(items)); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		body := sender.bodies[0]
		for _, title := range []string{"Article 0", "Article 1"} {
			if !strings.Contains(body, title) {
				t.Errorf("digest body is missing %q", title)
			}
		}
	})

	t.Run("non-ended run sends uncategorized fallback and reports failure", func(t *testing.T) {
		items := makeArticles(2)
		run := endedRun(items)
		run.Jobs[0].Status = model.BatchStatusExpired
		batches := newFakeBatchClient()
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		err := disp.RetrieveAndDispatch(ctx, run)
		if !errors.Is(err, domain.ErrBatchFailed) {
			t.Fatalf("expected ErrBatchFailed, got: %v", err)
		}
		if sender.sent() != 1 {
			t.Fatalf("expected the fallback digest to be sent, got %d emails", sender.sent())
		}
		if !strings.Contains(sender.bodies[0], model.CategoryUncategorized) {
			t.Error("expected fallback digest to group items as uncategorized")
		}
	})

	t.Run("results retrieval error fails dispatch without sending", func(t *testing.T) {
		items := makeArticles(2)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			return nil, errors.New("results stream truncated")
		}
		sender := &fakeEmailSender{}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		err := disp.RetrieveAndDispatch(ctx, endedRun(items))
		if !errors.Is(err, domain.ErrDispatchFailed) {
			t.Fatalf("expected ErrDispatchFailed, got: %v", err)
		}
		if sender.sent() != 0 {
			t.Errorf("expected no email, got %d", sender.sent())
		}
	})

	t.Run("sender failure surfaces as dispatch error", func(t *testing.T) {
		items := makeArticles(1)
		batches := newFakeBatchClient()
		batches.ListResultsFunc = func(ctx context.Context, batchID string) ([]adapter.BatchResult, error) {
			return []adapter.BatchResult{{CustomID: "email-group-0", Succeeded: true, Text: categorized}}, nil
		}
		sender := &fakeEmailSender{err: errors.New("ses throttled")}
		disp := usecase.NewEmailDispatcher(batches, sender, usecase.NopMetrics{}, "", nil, logger)

		err := disp.RetrieveAndDispatch(ctx, endedRun(items))
		if !errors.Is(err, domain.ErrDispatchFailed) {
			t.Fatalf("expected ErrDispatchFailed, got: %v", err)
		}
	})
}
