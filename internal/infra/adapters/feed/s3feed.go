package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/adapter"
)

var _ adapter.FeedSource = (*S3FeedSource)(nil)

// S3FeedSource reads the merged RSS document that the upstream collector
// drops into S3 and turns its items into candidate articles.
type S3FeedSource struct {
	client *s3.Client
	bucket string
	key    string
	log    zerolog.Logger
}

func NewS3FeedSource(client *s3.Client, bucket, key string, log zerolog.Logger) *S3FeedSource {
	return &S3FeedSource{
		client: client,
		bucket: bucket,
		key:    key,
		log:    log.With().Str("component", "feed-source").Logger(),
	}
}

// ItemsSince returns articles published strictly after since. Items with
// no parseable timestamp are kept; dropping them silently would lose
// articles from feeds with sloppy dates.
func (s *S3FeedSource) ItemsSince(ctx context.Context, since time.Time) ([]model.Article, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	parsed, err := gofeed.NewParser().Parse(out.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]model.Article, 0, len(parsed.Items))
	skipped := 0
	for _, item := range parsed.Items {
		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}
		if !publishedAt.IsZero() && !publishedAt.After(since) {
			skipped++
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}
		description := item.Description
		if description == "" {
			description = item.Content
		}

		source := ""
		if parsed.Title != "" {
			source = parsed.Title
		}
		if item.Custom != nil && item.Custom["source"] != "" {
			source = item.Custom["source"]
		}

		articles = append(articles, model.Article{
			ID:          id,
			Title:       item.Title,
			Link:        item.Link,
			Description: description,
			Source:      source,
			PublishedAt: publishedAt.UTC(),
		})
	}

	s.log.Debug().
		Int("total", len(parsed.Items)).
		Int("kept", len(articles)).
		Int("skipped", skipped).
		Time("since", since).
		Msg("feed filtered")
	return articles, nil
}
