package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/index"
	"github.com/stashd/stash/ingestion"
	"github.com/stashd/stash/storage"
)

// BatchProcessor rebuilds the search artifacts for batches of bookmarks.
// The lexical index is always rebuilt; embeddings only when an embedder is
// set, so a tokenizer change doesn't cost a full embedding pass.
type BatchProcessor struct {
	repo           storage.BookmarkRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// embedder may be nil for a lexical-only rebuild.
func NewBatchProcessor(repo storage.BookmarkRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process rebuilds search artifacts for a batch and writes the bookmarks
// back. Vectors are normalized after embedding so they stay compatible
// with cosine similarity search.
func (bp *BatchProcessor) Process(ctx context.Context, bookmarks []*core.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	for _, bookmark := range bookmarks {
		bookmark.SearchIndex = index.Build(bookmark)
	}

	if bp.embedder != nil {
		texts := make([]string, len(bookmarks))
		for i, bookmark := range bookmarks {
			texts[i] = ingestion.BuildEmbeddingInput(bookmark)
		}

		var embeddings [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
			return err
		}, bp.maxRetries, bp.retryBaseDelay)

		if err != nil {
			return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
		}

		if len(embeddings) != len(bookmarks) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(bookmarks), len(embeddings))
		}

		for i := range bookmarks {
			bookmarks[i].Vector = ai.NormalizeVector(embeddings[i])
		}
	}

	if _, err := bp.repo.UpdateBookmarks(ctx, bookmarks...); err != nil {
		return fmt.Errorf("failed to update bookmarks: %w", err)
	}

	return nil
}
