package mock

import (
	"context"
	"strings"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
)

// MockAnalyzer is a test double for ai.Analyzer.
// It allows custom behavior injection via function fields.
type MockAnalyzer struct {
	// AnalyzeFunc is called by Analyze if set.
	// If nil, uses default keyword-based behavior.
	AnalyzeFunc func(ctx context.Context, title, url, content string) (*core.Analysis, error)

	callCount int
}

// NewMockAnalyzer creates a mock analyzer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockAnalyzer().
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// Analyze produces a deterministic analysis from the input text.
// Default behavior: the summary is the first sentence-ish chunk of content,
// the category is keyword-guessed, and tags come from the title words.
func (m *MockAnalyzer) Analyze(ctx context.Context, title, url, content string) (*core.Analysis, error) {
	m.callCount++

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, title, url, content)
	}

	summary := content
	if len(summary) > 120 {
		summary = summary[:120]
	}
	summary = strings.TrimSpace(summary)

	category := ai.CategoryOther
	lower := strings.ToLower(title + " " + content)
	switch {
	case strings.Contains(lower, "golang") || strings.Contains(lower, "programming"):
		category = "Programming"
	case strings.Contains(lower, "software") || strings.Contains(lower, "computer"):
		category = "Technology"
	case strings.Contains(lower, "research") || strings.Contains(lower, "science"):
		category = "Science"
	}

	tags := make([]string, 0, 3)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) > 3 {
			tags = append(tags, word)
		}
		if len(tags) == 3 {
			break
		}
	}

	return &core.Analysis{
		Summary:  summary,
		Category: category,
		Tags:     tags,
	}, nil
}

// CallCount returns the number of times Analyze was called.
func (m *MockAnalyzer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockAnalyzer) Reset() {
	m.callCount = 0
	m.AnalyzeFunc = nil
}
