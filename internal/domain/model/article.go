package model

import "time"

// Article is one candidate item produced by the feed source. It is
// immutable once fetched; everything downstream consumes it read-only.
type Article struct {
	ID          string // stable identifier: feed GUID, falling back to the link
	Title       string
	Link        string
	Description string
	Source      string
	PublishedAt time.Time
}

// ResultRecord is the model output for a single article: a category label,
// a short summary and optional cross-references to related articles.
// Produced once per completed batch, immutable thereafter.
type ResultRecord struct {
	ItemID   string
	Title    string
	Link     string
	Summary  string
	Category string
	PubDate  string
	Related  []string
}

// FallbackRecord demotes an article to its lower-fidelity representation
// when no model output matched it. The article is never dropped.
func FallbackRecord(a Article) ResultRecord {
	summary := a.Description
	if summary == "" {
		summary = a.Title
	}
	return ResultRecord{
		ItemID:   a.ID,
		Title:    a.Title,
		Link:     a.Link,
		Summary:  TruncateWords(summary, 300),
		Category: CategoryUncategorized,
		PubDate:  a.PublishedAt.Format(time.RFC1123),
	}
}
