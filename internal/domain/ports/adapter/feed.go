package adapter

import (
	"context"
	"time"

	"rss-digest/internal/domain/model"
)

// FeedSource returns candidate items published after since. Order is not
// guaranteed; duplicates across calls carry the same identifier.
type FeedSource interface {
	ItemsSince(ctx context.Context, since time.Time) ([]model.Article, error)
}
