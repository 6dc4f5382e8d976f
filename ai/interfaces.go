package ai

import (
	"context"

	"github.com/stashd/stash/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer produces a structured analysis of a bookmarked page: a short
// summary, a category from the fixed taxonomy, and topic tags.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// Analyze examines page content and returns a summary, a category, and
	// 3-7 tags. The category is always one of Categories; content the model
	// cannot place lands in CategoryOther. Title and URL give the model
	// context beyond the body text.
	// Returns an error if the analysis service fails.
	Analyze(ctx context.Context, title, url, content string) (*core.Analysis, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Analyzer instances, ensuring
// they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Analyzer returns the content analysis service.
	// The returned Analyzer is safe for concurrent use.
	Analyzer() Analyzer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
