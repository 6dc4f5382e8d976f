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


package ingestion

import (
	"context"
	"fmt"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/index"
)

// processJob runs one bookmark through the pipeline stages.
//
// Only acquisition can fail the job: without content there is nothing to
// enrich, so the error propagates and the queue retries. Analysis and
// embedding are best-effort; their failures are logged and the bookmark
// still completes with whatever enrichment succeeded. The lexical index is
// rebuilt unconditionally, so the bookmark is findable by its title and URL
// even when every AI stage failed.
func (p *Pipeline) processJob(ctx context.Context, job Job) error {
	bookmark, err := p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
		if !core.CanTransition(b.Status, core.StatusProcessing) {
			return fmt.Errorf("%w: %s -> processing", core.ErrInvalidTransition, b.Status)
		}
		b.Status = core.StatusProcessing
		return nil
	})
	if err != nil {
		return err
	}

	// Stage 1: content acquisition. Skipped when the client already
	// captured the page (browser extension saves).
	if !(job.HasPreExtractedContent && bookmark.HasContent()) {
		parsed, err := p.fetcher.Fetch(ctx, bookmark.URL)
		if err != nil {
			return fmt.Errorf("acquiring content: %w", err)
		}

		bookmark, err = p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
			if parsed.Title != "" {
				b.Title = parsed.Title
			}
			if parsed.Description != "" {
				b.Description = parsed.Description
			}
			b.Content = parsed.Content
			b.HTMLSnapshot = parsed.HTML
			b.FaviconURL = parsed.FaviconURL
			b.OGImageURL = parsed.OGImageURL
			b.Domain = parsed.Domain
			b.Language = parsed.Language
			b.PublishedAt = parsed.PublishedAt
			b.ReadingTime = parsed.ReadingTime
			return nil
		})
		if err != nil {
			return fmt.Errorf("storing parsed content: %w", err)
		}
	} else {
		bookmark, err = p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
			if b.Domain == "" {
				b.Domain = core.ExtractDomain(b.URL)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("normalizing pre-extracted bookmark: %w", err)
		}
	}
	p.logger.Debug("processing progress", "bookmark", job.BookmarkID, "pct", 40)

	// Stage 2: LLM analysis. Best-effort.
	if bookmark.HasContent() {
		bookmark = p.analyze(ctx, job, bookmark)
	}
	p.logger.Debug("processing progress", "bookmark", job.BookmarkID, "pct", 70)

	// Stage 3: embedding over the enriched record. Best-effort, and like
	// analysis only worth running when there is content to embed.
	if bookmark.HasContent() {
		bookmark = p.embed(ctx, job, bookmark)
	}
	p.logger.Debug("processing progress", "bookmark", job.BookmarkID, "pct", 90)

	// Stage 4: lexical index rebuild and completion.
	_, err = p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
		b.SearchIndex = index.Build(b)
		if !core.CanTransition(b.Status, core.StatusCompleted) {
			return fmt.Errorf("%w: %s -> completed", core.ErrInvalidTransition, b.Status)
		}
		b.Status = core.StatusCompleted
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing bookmark: %w", err)
	}

	p.logger.Info("bookmark processed", "bookmark", job.BookmarkID, "url", job.URL)
	return nil
}

// analyze runs LLM analysis and applies the results: summary, category,
// merged tags, and the category's automatic collection. Failures leave the
// bookmark as it was.
func (p *Pipeline) analyze(ctx context.Context, job Job, bookmark *core.Bookmark) *core.Bookmark {
	analysis, err := p.provider.Analyzer().Analyze(ctx, bookmark.Title, bookmark.URL, bookmark.Content)
	if err != nil {
		p.logger.Warn("analysis failed, continuing without it",
			"bookmark", job.BookmarkID, "err", err)
		return bookmark
	}

	updated, err := p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
		b.Summary = analysis.Summary
		b.Category = analysis.Category
		// User-provided tags survive; analysis tags extend them
		b.Tags = core.MergeTags(b.Tags, analysis.Tags)
		return nil
	})
	if err != nil {
		p.logger.Warn("storing analysis failed", "bookmark", job.BookmarkID, "err", err)
		return bookmark
	}

	if analysis.Category != "" && analysis.Category != ai.CategoryOther {
		p.autoCollect(ctx, job.BookmarkID, analysis.Category)
	}

	return updated
}

// autoCollect links a bookmark into the collection named after its
// category, creating the collection on first use.
func (p *Pipeline) autoCollect(ctx context.Context, bookmarkID core.ID, category string) {
	collection, err := p.collections.GetOrCreateCollection(ctx, category)
	if err != nil {
		p.logger.Warn("auto-collection lookup failed",
			"bookmark", bookmarkID, "category", category, "err", err)
		return
	}
	if err := p.collections.LinkBookmark(ctx, collection.Id, bookmarkID); err != nil {
		p.logger.Warn("auto-collection link failed",
			"bookmark", bookmarkID, "collection", collection.Name, "err", err)
	}
}

// embed generates and stores the semantic vector for a bookmark. Failures
// leave the bookmark as it was.
func (p *Pipeline) embed(ctx context.Context, job Job, bookmark *core.Bookmark) *core.Bookmark {
	input := BuildEmbeddingInput(bookmark)
	if input == "" {
		return bookmark
	}

	vector, err := p.provider.Embedder().EmbedText(ctx, input)
	if err != nil {
		p.logger.Warn("embedding failed, continuing without it",
			"bookmark", job.BookmarkID, "err", err)
		return bookmark
	}
	if len(vector) == 0 {
		return bookmark
	}
	vector = ai.NormalizeVector(vector)

	updated, err := p.bookmarks.PatchBookmark(ctx, job.BookmarkID, func(b *core.Bookmark) error {
		b.Vector = vector
		return nil
	})
	if err != nil {
		p.logger.Warn("storing embedding failed", "bookmark", job.BookmarkID, "err", err)
		return bookmark
	}
	return updated
}
