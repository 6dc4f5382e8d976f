package index

import (
	"strings"

	"github.com/stashd/stash/core"
)

// Tier weights for the lexical index. A token found in several tiers keeps
// the weight of the strongest one.
const (
	WeightTitle   = 1.0 // title and tags
	WeightSummary = 0.4 // summary and description
	WeightMeta    = 0.2 // domain and URL tokens
	WeightContent = 0.1 // extracted body text
)

// Stop words to filter out when tokenizing
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// Build computes the weighted token index for a bookmark. Every token maps
// to the weight of the highest tier it appears in.
func Build(bookmark *core.Bookmark) map[string]float64 {
	idx := make(map[string]float64)

	apply := func(tokens []string, weight float64) {
		for _, token := range tokens {
			if weight > idx[token] {
				idx[token] = weight
			}
		}
	}

	// Lowest tier first so higher tiers win on overlap (max would win either
	// way; ordering just makes the common path a plain overwrite)
	apply(Tokenize(bookmark.Content), WeightContent)
	apply(Tokenize(bookmark.Domain), WeightMeta)
	apply(urlTokens(bookmark.URL), WeightMeta)
	apply(Tokenize(bookmark.Summary), WeightSummary)
	apply(Tokenize(bookmark.Description), WeightSummary)
	apply(Tokenize(bookmark.Title), WeightTitle)
	apply(Tokenize(strings.Join(bookmark.Tags, " ")), WeightTitle)

	return idx
}

// Score sums the indexed weights of the query tokens against an index.
func Score(idx map[string]float64, queryTokens []string) float64 {
	var score float64
	for _, token := range queryTokens {
		score += idx[token]
	}
	return score
}

// Tokenize splits text into words, lowercases, trims punctuation, and
// removes stop words.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// TokenizeQuery tokenizes a search query and removes duplicates, preserving
// first-occurrence order so repeated words don't score twice.
func TokenizeQuery(query string) []string {
	tokens := Tokenize(query)
	seen := make(map[string]bool, len(tokens))
	unique := tokens[:0]
	for _, token := range tokens {
		if !seen[token] {
			seen[token] = true
			unique = append(unique, token)
		}
	}
	return unique
}

// urlTokens extracts searchable tokens from a URL's host and path. Slugs
// like "go-concurrency-patterns" break into their words.
func urlTokens(rawURL string) []string {
	stripped := rawURL
	if i := strings.Index(stripped, "://"); i >= 0 {
		stripped = stripped[i+3:]
	}
	// Drop query string and fragment
	if i := strings.IndexAny(stripped, "?#"); i >= 0 {
		stripped = stripped[:i]
	}

	parts := strings.FieldsFunc(stripped, func(r rune) bool {
		switch r {
		case '/', '-', '_', '.', '=', '&', '+', '~', '%':
			return true
		}
		return false
	})

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := strings.ToLower(part)
		if cleaned != "" && !stopWords[cleaned] {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}
