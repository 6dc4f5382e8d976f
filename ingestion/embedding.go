package ingestion

import (
	"strings"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
)

// BuildEmbeddingInput assembles the text to embed for a bookmark. The most
// important signals go first, so that when truncation cuts the tail it
// drops body text, never the title or summary.
//
// Priority order: title > summary > tags > domain > description > content.
func BuildEmbeddingInput(bookmark *core.Bookmark) string {
	parts := make([]string, 0, 6)

	appendPart := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(bookmark.Title)
	appendPart(bookmark.Summary)
	appendPart(strings.Join(bookmark.Tags, ", "))
	appendPart(bookmark.Domain)
	appendPart(bookmark.Description)
	appendPart(bookmark.Content)

	return ai.TruncateText(strings.Join(parts, " — "), ai.MaxAnalysisInput)
}
