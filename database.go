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


package stash

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/ai/openai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/fetch"
	"github.com/stashd/stash/ingestion"
	"github.com/stashd/stash/reindex"
	"github.com/stashd/stash/search"
	"github.com/stashd/stash/storage"
	"github.com/stashd/stash/storage/badger"
)

// ErrInvalidURL is returned by AddBookmark for URLs that cannot be saved.
var ErrInvalidURL = errors.New("invalid bookmark URL")

// Database wires the storage backend, repositories, AI provider and
// fetcher into one handle the CLI and embedding applications work
// against.
type Database struct {
	backend        *badger.Backend
	bookmarkRepo   storage.BookmarkRepository
	collectionRepo storage.CollectionRepository
	provider       ai.AIProvider
	fetcher        fetch.Fetcher
	logger         *slog.Logger

	mu       sync.Mutex
	pipeline *ingestion.Pipeline
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	fetcher  fetch.Fetcher
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider injects a pre-built AI provider, bypassing the openai
// construction. Tests use this with the mock provider.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithFetcher injects a custom content fetcher.
func WithFetcher(fetcher fetch.Fetcher) DatabaseOption {
	return func(o *databaseOptions) {
		o.fetcher = fetcher
	}
}

// WithoutAI disables analysis and embeddings. Bookmarks are still fetched
// and lexically searchable.
func WithoutAI() DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = ai.NewNoopProvider()
	}
}

// NewDatabase opens (or creates) a database at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	bookmarkRepo, err := badger.NewBookmarkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	collectionRepo, err := badger.NewCollectionRepository(backend)
	if err != nil {
		bookmarkRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			collectionRepo.Close()
			bookmarkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher, err = fetch.NewHTTPFetcher()
		if err != nil {
			provider.Close()
			collectionRepo.Close()
			bookmarkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:        backend,
		bookmarkRepo:   bookmarkRepo,
		collectionRepo: collectionRepo,
		provider:       provider,
		fetcher:        fetcher,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	pipeline := db.pipeline
	db.pipeline = nil
	db.mu.Unlock()

	if pipeline != nil {
		pipeline.Release()
	}

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.collectionRepo.Close(); err != nil {
		db.logger.Error("error closing collection repository", "err", err)
		return err
	}
	if err := db.bookmarkRepo.Close(); err != nil {
		db.logger.Error("error closing bookmark repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) BookmarkRepository() storage.BookmarkRepository {
	return db.bookmarkRepo
}

func (db *Database) CollectionRepository() storage.CollectionRepository {
	return db.collectionRepo
}

// NewIngestionPipeline builds a pipeline over this database's
// repositories. The caller owns Start and Release. Use this for workers
// with a custom queue; AddBookmark manages its own internal pipeline.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.bookmarkRepo, db.collectionRepo, db.provider, db.fetcher, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.bookmarkRepo, db.provider, opts...)
}

// NewReindexer builds a reindexer that rebuilds search artifacts for
// every stored bookmark, reporting progress to w.
func (db *Database) NewReindexer(config *reindex.Config, w io.Writer) *reindex.Reindexer {
	return reindex.NewReindexer(db.bookmarkRepo, db.provider.Embedder(), config, w)
}

// Pipeline returns the database's internal ingestion pipeline, starting
// it on first use. It processes from an in-memory queue and is released
// by Close.
func (db *Database) Pipeline() (*ingestion.Pipeline, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.pipeline != nil {
		return db.pipeline, nil
	}

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return nil, err
	}
	if err := pipeline.Start(context.Background()); err != nil {
		pipeline.Release()
		return nil, err
	}

	db.pipeline = pipeline
	return pipeline, nil
}

// AddOption supplies caller-provided fields for a new bookmark.
type AddOption func(*core.Bookmark)

// WithTitle sets the bookmark title up front.
func WithTitle(title string) AddOption {
	return func(b *core.Bookmark) { b.Title = title }
}

// WithDescription sets the bookmark description up front.
func WithDescription(description string) AddOption {
	return func(b *core.Bookmark) { b.Description = description }
}

// WithContent supplies pre-extracted text content. The pipeline skips
// fetching when content is already present.
func WithContent(content string) AddOption {
	return func(b *core.Bookmark) { b.Content = content }
}

// WithTags sets user tags. The pipeline merges AI tags into these
// rather than replacing them.
func WithTags(tags ...string) AddOption {
	return func(b *core.Bookmark) { b.Tags = tags }
}

// AddBookmark validates and saves a new pending bookmark, then enqueues
// it for asynchronous processing. The returned bookmark has its ID and
// timestamps set; enrichment lands later as the pipeline advances it to
// completed.
func (db *Database) AddBookmark(ctx context.Context, rawURL string, opts ...AddOption) (*core.Bookmark, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	bookmark := &core.Bookmark{
		URL:    parsed.String(),
		Domain: core.ExtractDomain(parsed.String()),
		Status: core.StatusPending,
	}
	for _, opt := range opts {
		opt(bookmark)
	}

	added, err := db.bookmarkRepo.AddBookmarks(ctx, bookmark)
	if err != nil {
		return nil, err
	}

	pipeline, err := db.Pipeline()
	if err != nil {
		return nil, err
	}
	if err := pipeline.Enqueue(ctx, added[0]); err != nil {
		return nil, err
	}

	return added[0], nil
}

// GetBookmark retrieves a bookmark by ID.
func (db *Database) GetBookmark(ctx context.Context, id core.ID) (*core.Bookmark, error) {
	return db.bookmarkRepo.GetBookmark(ctx, id)
}

// Search runs a hybrid query over the stored bookmarks.
func (db *Database) Search(ctx context.Context, query string, filters storage.Filters, limit, offset int) (*core.Page, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	return searcher.Search(ctx, query, filters, limit, offset)
}

// SetFavorite toggles the favorite flag. User toggles are independent of
// pipeline status and survive concurrent enrichment.
func (db *Database) SetFavorite(ctx context.Context, id core.ID, favorite bool) (*core.Bookmark, error) {
	return db.bookmarkRepo.PatchBookmark(ctx, id, func(b *core.Bookmark) error {
		b.IsFavorite = favorite
		return nil
	})
}

// SetArchived toggles the archived flag.
func (db *Database) SetArchived(ctx context.Context, id core.ID, archived bool) (*core.Bookmark, error) {
	return db.bookmarkRepo.PatchBookmark(ctx, id, func(b *core.Bookmark) error {
		b.IsArchived = archived
		return nil
	})
}

// SetRead toggles the read flag.
func (db *Database) SetRead(ctx context.Context, id core.ID, read bool) (*core.Bookmark, error) {
	return db.bookmarkRepo.PatchBookmark(ctx, id, func(b *core.Bookmark) error {
		b.IsRead = read
		return nil
	})
}
