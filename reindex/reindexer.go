// Copyright 2025 Stash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// BatchSize is the number of bookmarks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of bookmarks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// LexicalOnly rebuilds only the weighted lexical index, skipping
	// embedding calls entirely. Use after a tokenizer or tier-weight
	// change when stored vectors are still valid.
	LexicalOnly bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer orchestrates rebuilding search artifacts for every bookmark
// in a database.
type Reindexer struct {
	repo      storage.BookmarkRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *BookmarkIterator
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(repo storage.BookmarkRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.LexicalOnly {
		embedder = nil
	}

	return &Reindexer{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewBookmarkIterator(repo, config.BatchSize),
	}
}

// Run executes the reindexing operation over every stored bookmark,
// reporting progress to the configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count bookmarks: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No bookmarks found in database (0 bookmarks)\n")
		return nil
	}

	mode := "full"
	if r.config.LexicalOnly {
		mode = "lexical-only"
	}
	fmt.Fprintf(r.progress, "Starting %s reindex of %d bookmarks (batch size: %d)\n",
		mode, total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(bookmarks []*core.Bookmark) error {
		if err := r.processor.Process(ctx, bookmarks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(bookmarks)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d bookmarks in %v (%.1f bookmarks/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
