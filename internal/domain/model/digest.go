package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CategoryUncategorized is the fallback bucket for articles the model did
// not classify. It always sorts last in the digest.
const CategoryUncategorized = "Uncategorized"

// DefaultPriorityCategories is the section ordering for the email digest.
// Tech-related categories are preferred when classification is ambiguous.
var DefaultPriorityCategories = []string{
	"Technology",
	"AI/ML",
	"Cybersecurity",
	"Programming",
	"Science",
	"Business",
	"Politics",
	"Health",
	"Environment",
	"Entertainment",
	"Gaming",
	"Cycling",
	"Media/TV/Film",
	"Other",
}

type DigestSection struct {
	Category string
	Articles []ResultRecord
}

// Digest is the assembled email payload: categorized sections in priority
// order, with the fallback bucket last.
type Digest struct {
	Date      time.Time
	Sections  []DigestSection
	Total     int
	Fallbacks int
}

// BuildDigest groups records into sections honoring the priority ordering.
// Categories absent from the priority list keep their relative insertion
// order between "Other" and "Uncategorized".
func BuildDigest(date time.Time, records []ResultRecord, priority []string) *Digest {
	if len(priority) == 0 {
		priority = DefaultPriorityCategories
	}
	byCategory := make(map[string][]ResultRecord)
	var extras []string
	known := make(map[string]bool, len(priority))
	for _, c := range priority {
		known[c] = true
	}
	for _, rec := range records {
		cat := rec.Category
		if cat == "" {
			cat = CategoryUncategorized
		}
		if _, seen := byCategory[cat]; !seen && !known[cat] && cat != CategoryUncategorized {
			extras = append(extras, cat)
		}
		byCategory[cat] = append(byCategory[cat], rec)
	}

	d := &Digest{Date: date}
	appendSection := func(cat string) {
		arts := byCategory[cat]
		if len(arts) == 0 {
			return
		}
		d.Sections = append(d.Sections, DigestSection{Category: cat, Articles: arts})
		d.Total += len(arts)
	}
	for _, cat := range priority {
		appendSection(cat)
	}
	for _, cat := range extras {
		appendSection(cat)
	}
	appendSection(CategoryUncategorized)
	d.Fallbacks = len(byCategory[CategoryUncategorized])
	return d
}

// TruncateWords shortens s to at most max bytes, cutting at a word
// boundary when one falls in the last fifth, with a trailing ellipsis.
// The cut never splits a multi-byte rune.
func TruncateWords(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > max*4/5 {
		cut = cut[:i]
	}
	return cut + "..."
}
