package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

// BookmarkRepository implements storage.BookmarkRepository for BadgerDB.
type BookmarkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.BookmarkRepository = (*BookmarkRepository)(nil)

// NewBookmarkRepository creates a new BookmarkRepository.
func NewBookmarkRepository(backend *Backend) (*BookmarkRepository, error) {
	idSeq, err := backend.GetSequence(bookmarkIDSeq)
	if err != nil {
		return nil, err
	}

	return &BookmarkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *BookmarkRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *BookmarkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilar delegates to the backend.
func (r *BookmarkRepository) FindSimilar(ctx context.Context, vector []float32, filters storage.Filters, minSimilarity float64, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, filters, minSimilarity, limit)
}

// SearchLexical delegates to the backend.
func (r *BookmarkRepository) SearchLexical(ctx context.Context, queryTokens []string, filters storage.Filters, limit int) ([]*core.SearchResult, error) {
	return r.backend.SearchLexical(ctx, queryTokens, filters, limit)
}

// AddBookmarks adds one or more bookmarks to storage.
func (r *BookmarkRepository) AddBookmarks(ctx context.Context, bookmarks ...*core.Bookmark) ([]*core.Bookmark, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, bookmark := range bookmarks {
			// Always generate new ID from sequence
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			bookmark.Id = core.ID(nextID)

			bookmark.CreatedAt = time.Now().UTC()
			bookmark.UpdatedAt = bookmark.CreatedAt

			// Store primary record
			key := makeBookmarkKey(bookmark.Id)
			value := storage.MarshalBookmark(bookmark)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeBookmarkDateKey(bookmark.CreatedAt, bookmark.Id)
			if err := tx.Set(dateKey, storage.MarshalID(bookmark.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return bookmarks, err
}

// UpdateBookmarks replaces existing bookmarks wholesale.
func (r *BookmarkRepository) UpdateBookmarks(ctx context.Context, bookmarks ...*core.Bookmark) ([]*core.Bookmark, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, bookmark := range bookmarks {
			if err := r.writeExisting(tx, bookmark); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return bookmarks, err
}

// PatchBookmark applies fn to the current record inside one write transaction.
func (r *BookmarkRepository) PatchBookmark(ctx context.Context, id core.ID, fn func(*core.Bookmark) error) (*core.Bookmark, error) {
	var result *core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBookmarkKey(id)
		bookmark, err := r.readBookmark(tx, key)
		if err != nil {
			return err
		}
		if bookmark == nil {
			return storage.ErrNotFound
		}

		if err := fn(bookmark); err != nil {
			return err
		}
		bookmark.Id = id // the patch function must not reassign identity

		if err := r.writeExisting(tx, bookmark); err != nil {
			return err
		}
		result = bookmark
		return tx.Commit()
	}, true)
	return result, err
}

// writeExisting persists an updated record, bumping UpdatedAt and keeping
// the date index in sync. The caller owns the transaction.
func (r *BookmarkRepository) writeExisting(tx *badger.Txn, bookmark *core.Bookmark) error {
	key := makeBookmarkKey(bookmark.Id)

	// Read old record to detect index-relevant changes
	old, err := r.readBookmark(tx, key)
	if err != nil {
		return err
	}
	if old == nil {
		return storage.ErrNotFound
	}

	bookmark.CreatedAt = old.CreatedAt
	bookmark.UpdatedAt = time.Now().UTC()

	value := storage.MarshalBookmark(bookmark)
	if err := tx.Set(key, value); err != nil {
		return err
	}

	// Update date index if creation time changed (should not happen, but
	// keeps the index consistent with the record)
	if !old.CreatedAt.Equal(bookmark.CreatedAt) {
		oldDateKey := makeBookmarkDateKey(old.CreatedAt, old.Id)
		if err := tx.Delete(oldDateKey); err != nil {
			return err
		}
		newDateKey := makeBookmarkDateKey(bookmark.CreatedAt, bookmark.Id)
		if err := tx.Set(newDateKey, storage.MarshalID(bookmark.Id)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBookmarks removes bookmarks by their IDs.
func (r *BookmarkRepository) DeleteBookmarks(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeBookmarkKey(id)

			bookmark, err := r.readBookmark(tx, key)
			if err != nil {
				return err
			}
			if bookmark == nil {
				return storage.ErrNotFound
			}

			// Delete from date index
			dateKey := makeBookmarkDateKey(bookmark.CreatedAt, bookmark.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			// Delete collection membership entries, both directions
			if err := deleteMemberships(tx, id); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetBookmark retrieves a single bookmark by ID.
func (r *BookmarkRepository) GetBookmark(ctx context.Context, id core.ID) (*core.Bookmark, error) {
	var result *core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBookmarkKey(id)
		var err error
		result, err = r.readBookmark(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetBookmarks retrieves multiple bookmarks by their IDs.
func (r *BookmarkRepository) GetBookmarks(ctx context.Context, ids ...core.ID) ([]*core.Bookmark, error) {
	var result []*core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeBookmarkKey(id)
			bookmark, err := r.readBookmark(tx, key)
			if err != nil {
				return err
			}
			if bookmark != nil {
				result = append(result, bookmark)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetBookmarksByDateRange retrieves bookmarks created within a time range.
func (r *BookmarkRepository) GetBookmarksByDateRange(ctx context.Context, start, end time.Time) ([]*core.Bookmark, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialBookmarkDateKey(start)
		endKey := makePartialBookmarkDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			// Read the ID from the index
			var bookmarkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				bookmarkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			bookmarkKey := makeBookmarkKey(bookmarkID)
			bookmark, err := r.readBookmark(tx, bookmarkKey)
			if err != nil {
				return err
			}
			if bookmark != nil {
				results = append(results, bookmark)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentBookmarks retrieves the N most recently created bookmarks, newest first.
func (r *BookmarkRepository) GetRecentBookmarks(ctx context.Context, limit int) ([]*core.Bookmark, error) {
	var results []*core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent records first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialBookmarkDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))

		prefix := []byte(bookmarkDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()

			// Check if we're still in the date index
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var bookmarkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				bookmarkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			bookmarkKey := makeBookmarkKey(bookmarkID)
			bookmark, err := r.readBookmark(tx, bookmarkKey)
			if err != nil {
				return err
			}
			if bookmark != nil {
				results = append(results, bookmark)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// Query returns all bookmarks matching the conjunctive filters.
func (r *BookmarkRepository) Query(ctx context.Context, filters storage.Filters) ([]*core.Bookmark, error) {
	var results []*core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.forEachBookmark(tx, func(bookmark *core.Bookmark) error {
			if filters.Match(bookmark) {
				results = append(results, bookmark)
			}
			return nil
		})
	}, false)
	return results, err
}

// readBookmark reads a bookmark from the transaction.
// Returns nil without error if the key does not exist.
func (r *BookmarkRepository) readBookmark(tx *badger.Txn, key []byte) (*core.Bookmark, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var bookmark *core.Bookmark
	err = item.Value(func(val []byte) error {
		var err error
		bookmark, err = storage.UnmarshalBookmark(val)
		return err
	})
	return bookmark, err
}
