package storage

import (
	"context"
	"time"

	"github.com/stashd/stash/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// BookmarkRepository provides operations for managing bookmarks, including
// the query primitives both search legs are built on.
type BookmarkRepository interface {
	Repository

	// AddBookmarks adds one or more bookmarks to storage.
	// Generates sequence IDs and sets CreatedAt/UpdatedAt timestamps.
	// Returns the bookmarks with generated IDs and timestamps populated.
	AddBookmarks(ctx context.Context, bookmarks ...*core.Bookmark) ([]*core.Bookmark, error)

	// UpdateBookmarks replaces existing bookmarks wholesale.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any bookmark doesn't exist.
	UpdateBookmarks(ctx context.Context, bookmarks ...*core.Bookmark) ([]*core.Bookmark, error)

	// PatchBookmark applies fn to the current record inside one write
	// transaction, persisting the result atomically. The pipeline uses this
	// for stage-by-stage field updates so concurrent user toggles
	// (favorite/archived/read) are never clobbered.
	// Returns ErrNotFound if the bookmark doesn't exist.
	PatchBookmark(ctx context.Context, id core.ID, fn func(*core.Bookmark) error) (*core.Bookmark, error)

	// DeleteBookmarks removes bookmarks by their IDs, including index entries
	// and collection links. Returns ErrNotFound if any bookmark doesn't exist.
	DeleteBookmarks(ctx context.Context, ids ...core.ID) error

	// GetBookmark retrieves a single bookmark by ID.
	// Returns ErrNotFound if the bookmark doesn't exist.
	GetBookmark(ctx context.Context, id core.ID) (*core.Bookmark, error)

	// GetBookmarks retrieves multiple bookmarks by their IDs.
	// Returns only the bookmarks that exist (no error for missing ones).
	GetBookmarks(ctx context.Context, ids ...core.ID) ([]*core.Bookmark, error)

	// GetBookmarksByDateRange retrieves bookmarks created within a time range.
	// Returns bookmarks where start <= CreatedAt < end, ordered by creation time.
	GetBookmarksByDateRange(ctx context.Context, start, end time.Time) ([]*core.Bookmark, error)

	// GetRecentBookmarks retrieves the N most recently created bookmarks,
	// newest first.
	GetRecentBookmarks(ctx context.Context, limit int) ([]*core.Bookmark, error)

	// Query returns all bookmarks matching the conjunctive filters,
	// in unspecified order.
	Query(ctx context.Context, filters Filters) ([]*core.Bookmark, error)

	// FindSimilar ranks bookmarks with a non-empty embedding vector that match
	// the filters by vector similarity to the query vector, highest first.
	// Results below minSimilarity are dropped; at most limit are returned.
	FindSimilar(ctx context.Context, vector []float32, filters Filters, minSimilarity float64, limit int) ([]*core.SearchResult, error)

	// SearchLexical ranks bookmarks matching the filters by weighted lexical
	// relevance of the query tokens against each bookmark's search index,
	// highest first. Bookmarks with zero score are excluded; at most limit
	// are returned.
	SearchLexical(ctx context.Context, queryTokens []string, filters Filters, limit int) ([]*core.SearchResult, error)
}

// CollectionRepository provides operations for managing collections and
// the bookmark-collection membership relation.
type CollectionRepository interface {
	Repository

	// GetOrCreateCollection finds a collection by exact name or creates it.
	// Collection IDs are content-derived from the name, so concurrent
	// creation attempts converge on the same record.
	GetOrCreateCollection(ctx context.Context, name string) (*core.Collection, error)

	// GetCollection retrieves a collection by ID.
	// Returns ErrNotFound if the collection doesn't exist.
	GetCollection(ctx context.Context, id core.ID) (*core.Collection, error)

	// FindCollectionByName finds a collection by exact name.
	// Returns nil (not an error) if no matching collection exists.
	FindCollectionByName(ctx context.Context, name string) (*core.Collection, error)

	// GetAllCollections retrieves every collection, in unspecified order.
	GetAllCollections(ctx context.Context) ([]*core.Collection, error)

	// LinkBookmark adds a bookmark to a collection. Linking an already
	// linked pair is a no-op, not an error.
	LinkBookmark(ctx context.Context, collectionID, bookmarkID core.ID) error

	// UnlinkBookmark removes a bookmark from a collection. Unlinking a pair
	// that is not linked is a no-op.
	UnlinkBookmark(ctx context.Context, collectionID, bookmarkID core.ID) error

	// GetBookmarksByCollection retrieves the bookmarks linked to a
	// collection. Links whose bookmark no longer exists are skipped.
	GetBookmarksByCollection(ctx context.Context, collectionID core.ID) ([]*core.Bookmark, error)

	// GetCollectionsByBookmark retrieves the collections a bookmark
	// belongs to.
	GetCollectionsByBookmark(ctx context.Context, bookmarkID core.ID) ([]*core.Collection, error)
}
