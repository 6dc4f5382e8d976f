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
	"time"

	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

const (
	// DefaultBatchSize is the default number of bookmarks per batch
	DefaultBatchSize = 100
)

// BookmarkIterator walks every stored bookmark in creation order, handing
// them to a callback in batches.
type BookmarkIterator struct {
	repo      storage.BookmarkRepository
	batchSize int
}

// NewBookmarkIterator creates a new bookmark iterator.
// batchSize: number of bookmarks in each batch (must be > 0)
func NewBookmarkIterator(repo storage.BookmarkRepository, batchSize int) *BookmarkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &BookmarkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Count returns the total number of stored bookmarks.
func (it *BookmarkIterator) Count(ctx context.Context) (int, error) {
	bookmarks, err := it.fetchAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(bookmarks), nil
}

// ForEach iterates over all bookmarks, calling fn for each batch.
// Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *BookmarkIterator) ForEach(ctx context.Context, fn func([]*core.Bookmark) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	bookmarks, err := it.fetchAll(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(bookmarks); i += it.batchSize {
		end := i + it.batchSize
		if end > len(bookmarks) {
			end = len(bookmarks)
		}

		if err := fn(bookmarks[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

func (it *BookmarkIterator) fetchAll(ctx context.Context) ([]*core.Bookmark, error) {
	// The date index covers every record, so an unbounded range is a
	// full ordered scan.
	start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)
	return it.repo.GetBookmarksByDateRange(ctx, start, end)
}
