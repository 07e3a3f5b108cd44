package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/infra/logging"

	"github.com/rs/zerolog"
)

// EmailDispatcher retrieves a completed run's results, reassembles them
// against the original articles, and delivers the categorized digest.
// The defining correctness property: no candidate article is ever lost,
// only ever demoted to the fallback bucket.
type EmailDispatcher struct {
	batches    adapter.BatchClient
	sender     adapter.EmailSender
	metrics    Metrics
	subject    string
	categories []string
	log        *zerolog.Logger
}

func NewEmailDispatcher(batches adapter.BatchClient, sender adapter.EmailSender, m Metrics, subject string, categories []string, logger *zerolog.Logger) *EmailDispatcher {
	l := logger.With().Str("component", "EmailDispatcher").Logger()
	if m == nil {
		m = NopMetrics{}
	}
	if subject == "" {
		subject = "Your Daily RSS Digest"
	}
	if len(categories) == 0 {
		categories = model.DefaultPriorityCategories
	}
	return &EmailDispatcher{batches: batches, sender: sender, metrics: m, subject: subject, categories: categories, log: &l}
}

var _ Dispatcher = (*EmailDispatcher)(nil)

func (d *EmailDispatcher) RetrieveAndDispatch(ctx context.Context, run *model.BatchRun) error {
	log := logging.With(ctx, d.log)
	if !run.Ended() {
		// Degraded path: the reader still gets the article list, just
		// without AI categorization. The branch reports failure and the
		// watermark stays put.
		log.Warn().Str("status", string(run.WorstStatus())).Msg("batch not ended; sending uncategorized fallback digest")
		records := make([]model.ResultRecord, 0, len(run.Items))
		for _, item := range run.Items {
			records = append(records, model.FallbackRecord(item))
		}
		digest := model.BuildDigest(run.SubmittedAt, records, d.categories)
		if err := d.send(ctx, digest); err != nil {
			log.Error().Err(err).Msg("fallback digest delivery failed")
		}
		return fmt.Errorf("%w: status %s", domain.ErrBatchFailed, run.WorstStatus())
	}

	matched := make(map[string]model.ResultRecord)
	for i := range run.Jobs {
		results, err := d.batches.ListResults(ctx, run.Jobs[i].BatchID)
		if err != nil {
			return fmt.Errorf("%w: fetching results for %s: %v", domain.ErrDispatchFailed, run.Jobs[i].BatchID, err)
		}
		for _, res := range results {
			if !res.Succeeded {
				log.Warn().Str("custom_id", res.CustomID).Str("kind", res.ErrorKind).Msg("request failed inside completed batch")
				continue
			}
			records, perr := parseCategorizedRecords(res.Text)
			if perr != nil {
				// A malformed group response demotes its items to the
				// fallback bucket; it never crashes the retrieval.
				log.Warn().Err(perr).Str("custom_id", res.CustomID).Msg("unparseable group response")
				continue
			}
			for _, rec := range records {
				matched[rec.ItemID] = rec
			}
		}
	}

	// Reassemble against the original items: every submitted article
	// appears exactly once, classified or demoted.
	records := make([]model.ResultRecord, 0, len(run.Items))
	fallbacks := 0
	for _, item := range run.Items {
		if rec, ok := matched[item.ID]; ok {
			records = append(records, rec)
			continue
		}
		fallbacks++
		records = append(records, model.FallbackRecord(item))
	}
	if fallbacks > 0 {
		log.Warn().Err(domain.ErrPartialResults).
			Int("missing", fallbacks).
			Int("total", len(run.Items)).
			Msg("items without matching results demoted to fallback bucket")
	}

	digest := model.BuildDigest(run.SubmittedAt, records, d.categories)
	if err := d.send(ctx, digest); err != nil {
		return err
	}

	d.metrics.ArticlesDispatched(string(run.Workflow), "categorized", len(run.Items)-fallbacks)
	d.metrics.ArticlesDispatched(string(run.Workflow), "fallback", fallbacks)
	log.Info().
		Int("articles", len(run.Items)).
		Int("fallbacks", fallbacks).
		Int("sections", len(digest.Sections)).
		Msg("digest dispatched")
	return nil
}

func (d *EmailDispatcher) send(ctx context.Context, digest *model.Digest) error {
	body, err := renderDigestHTML(digest)
	if err != nil {
		return fmt.Errorf("%w: rendering digest: %v", domain.ErrDispatchFailed, err)
	}
	if err := d.sender.Send(ctx, d.subject, body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	return nil
}

// --- provider response coercion ---

type categorizedPayload struct {
	Categories map[string][]resultRecordJSON `json:"categories"`
}

type resultRecordJSON struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Link            string   `json:"link"`
	Summary         string   `json:"summary"`
	Category        string   `json:"category"`
	PubDate         string   `json:"pubdate"`
	RelatedArticles []string `json:"related_articles"`
}

// parseCategorizedRecords coerces a single group response into fixed
// ResultRecords. Models occasionally wrap the JSON in markdown fences or
// chatter; extraction is tolerant of both.
func parseCategorizedRecords(text string) ([]model.ResultRecord, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var payload categorizedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decoding categorized payload: %w", err)
	}
	var records []model.ResultRecord
	for category, items := range payload.Categories {
		for _, it := range items {
			if it.ID == "" {
				continue
			}
			cat := it.Category
			if cat == "" {
				cat = category
			}
			records = append(records, model.ResultRecord{
				ItemID:   it.ID,
				Title:    it.Title,
				Link:     it.Link,
				Summary:  it.Summary,
				Category: cat,
				PubDate:  it.PubDate,
				Related:  it.RelatedArticles,
			})
		}
	}
	return records, nil
}

func extractJSON(text string) (string, error) {
	if s := fencedBlock(text, "```json"); s != "" {
		return s, nil
	}
	if s := fencedBlock(text, "```"); s != "" {
		return s, nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object found in response")
}

func fencedBlock(text, fence string) string {
	start := strings.Index(text, fence)
	if start < 0 {
		return ""
	}
	start += len(fence)
	end := strings.Index(text[start:], "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(text[start : start+end])
}

// --- digest rendering ---

var digestTemplate = template.Must(template.New("digest").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<style>
body{font-family:system-ui,Arial,sans-serif;margin:1.5rem;color:#222;}
h2{border-bottom:1px solid #ddd;padding-bottom:4px;}
.article{margin-bottom:14px;}
.summary{color:#444;}
.related{font-size:12px;color:#666;}
</style>
</head>
<body>
<h1>Daily Digest &mdash; {{.Date.Format "Monday, 02 January 2006"}}</h1>
{{range .Sections}}
<h2>{{.Category}}</h2>
{{range .Articles}}
<div class="article">
<a href="{{.Link}}">{{.Title}}</a>
<div class="summary">{{.Summary}}</div>
{{if .Related}}<div class="related">Related: {{range $i, $r := .Related}}{{if $i}}, {{end}}{{$r}}{{end}}</div>{{end}}
</div>
{{end}}
{{end}}
</body>
</html>`))

func renderDigestHTML(digest *model.Digest) (string, error) {
	var b strings.Builder
	if err := digestTemplate.Execute(&b, digest); err != nil {
		return "", err
	}
	return b.String(), nil
}
