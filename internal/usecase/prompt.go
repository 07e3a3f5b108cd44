package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"rss-digest/internal/domain/model"

	"github.com/pkoukk/tiktoken-go"
)

const descriptionMaxLength = 200

type promptArticle struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pubdate"`
}

// buildCategorizationPrompt enumerates one group of articles with strict
// output-format instructions: one classification object per article,
// keyed by the article's identifier, every input article present.
func buildCategorizationPrompt(articles []model.Article, categories []string, maxDescription int) string {
	if len(categories) == 0 {
		categories = model.DefaultPriorityCategories
	}
	items := make([]promptArticle, 0, len(articles))
	for _, a := range articles {
		items = append(items, promptArticle{
			ID:          a.ID,
			Title:       a.Title,
			Description: model.TruncateWords(a.Description, maxDescription),
			Link:        a.Link,
			PubDate:     a.PublishedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
		})
	}
	payload, _ := json.MarshalIndent(items, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "You are processing %d RSS articles. You MUST return ALL %d articles in your response.\n\n", len(items), len(items))
	b.WriteString("CRITICAL REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Input: %d articles\n", len(items))
	fmt.Fprintf(&b, "- Output: EXACTLY %d articles (no more, no less)\n", len(items))
	b.WriteString("- Every single article from the input must appear in your output, referenced by its id\n")
	b.WriteString("- If you're unsure about categorization, use your best judgment but DO NOT omit any articles\n\n")
	b.WriteString("PROCESSING INSTRUCTIONS:\n")
	b.WriteString("1. Read through ALL articles first to get complete context\n")
	b.WriteString("2. Categorize each article using the priority categories below\n")
	b.WriteString("3. Create 1-2 sentence summaries for each article\n")
	b.WriteString("4. Identify related articles that cover similar topics\n\n")
	b.WriteString("CATEGORIES (in priority order - prefer tech-related when applicable):\n")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\n")
	b.WriteString("Return ONLY valid JSON with no explanations or additional text, in this exact structure:\n")
	b.WriteString(`{
  "categories": {
    "category_name": [
      {
        "id": "original id",
        "title": "original title",
        "link": "original link",
        "summary": "brief 1-2 sentence summary",
        "category": "category_name",
        "pubdate": "original pubdate",
        "related_articles": ["id of related article"]
      }
    ]
  }
}`)
	b.WriteString("\n\nImportant:\n")
	b.WriteString("- Every article must appear in exactly one category\n")
	b.WriteString("- Preserve all original article data (id, title, link, pubdate)\n")
	b.WriteString("- Group similar articles using the related_articles field\n\n")
	b.WriteString("Articles to process:\n")
	b.Write(payload)
	b.WriteString("\n")
	return b.String()
}

// buildPodcastPrompt asks for a two-host dialogue script covering the
// whole aggregate, with strict speaker-label formatting so the script is
// machine-parseable downstream.
func buildPodcastPrompt(articles []model.Article, speakerA, speakerB string) string {
	var b strings.Builder
	b.WriteString("You are creating an audio podcast for a daily tech news show.\n")
	b.WriteString("Given the following list of articles, create an engaging 5-10 minute podcast script.\n\n")
	b.WriteString("STRUCTURE:\n")
	b.WriteString("- Opening: warm welcome with the actual date from the articles and a brief teaser of top stories\n")
	b.WriteString("- Main segments: the most significant stories, grouped by theme\n")
	b.WriteString("- Natural transitions between topics\n")
	b.WriteString("- Closing: brief recap and sign-off\n\n")
	fmt.Fprintf(&b, "STYLE: two hosts, %s and %s, conversational tone, accessible explanations, stick to facts from the article text.\n\n", speakerA, speakerB)
	b.WriteString("CRITICAL OUTPUT REQUIREMENTS:\n")
	b.WriteString("- DO NOT include announcer intros, outros, stage directions, or meta-commentary in brackets\n")
	b.WriteString("- Output ONLY the direct dialogue - pure conversation that will be read aloud\n")
	fmt.Fprintf(&b, "- Mark each speaker change with \"%s:\" or \"%s:\" at the start of their dialogue line\n\n", speakerA, speakerB)
	b.WriteString("Articles to cover:\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "Title: %s\nDescription: %s\n---\n", a.Title, a.Description)
	}
	return b.String()
}

// estimateTokens counts prompt tokens with the cl100k_base encoding,
// falling back to a chars/4 heuristic when the encoder is unavailable
// (e.g. no cached BPE data).
func estimateTokens(prompt string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(prompt) / 4
	}
	return len(enc.Encode(prompt, nil, nil))
}
