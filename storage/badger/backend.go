package badger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

const (
	defaultSequenceBandwidth = 100
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// WithTransaction executes a function within a transaction.
// Implements storage.Repository transaction support.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// forEachBookmark iterates over every primary bookmark record, skipping
// index and sequence keys, and calls fn for each decoded record.
func (b *Backend) forEachBookmark(tx *badger.Txn, fn func(*core.Bookmark) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(bookmarkPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.Key()

		// Skip index keys (date index, collection indexes, and sequence key)
		if bytes.Equal(key, []byte(bookmarkIDSeq)) ||
			bytes.HasPrefix(key, []byte(bookmarkDatePrefix)) ||
			bytes.HasPrefix(key, []byte(bookmarkCollectionPrefix)) ||
			bytes.HasPrefix(key, []byte(collectionBookmarkPrefix)) {
			continue
		}

		var bookmark *core.Bookmark
		err := item.Value(func(val []byte) error {
			var err error
			bookmark, err = storage.UnmarshalBookmark(val)
			return err
		})
		if err != nil {
			return err
		}
		if bookmark == nil {
			continue
		}
		if err := fn(bookmark); err != nil {
			return err
		}
	}
	return nil
}

// FindSimilar ranks bookmarks with embeddings matching the filters by vector
// similarity. Vectors are stored normalized, so the dot product is the cosine
// similarity.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, filters storage.Filters, minSimilarity float64, limit int) ([]*core.SearchResult, error) {
	var results []*core.SearchResult

	err := b.WithTx(func(tx *badger.Txn) error {
		return b.forEachBookmark(tx, func(bookmark *core.Bookmark) error {
			if len(bookmark.Vector) == 0 {
				return nil
			}
			if !filters.Match(bookmark) {
				return nil
			}

			similarity := dotProduct(vector, bookmark.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{
					Bookmark: bookmark,
					Score:    similarity,
				})
			}
			return nil
		})
	}, false)

	if err != nil {
		return nil, err
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// SearchLexical ranks bookmarks matching the filters by the summed tier
// weight of query tokens found in each bookmark's search index.
func (b *Backend) SearchLexical(ctx context.Context, queryTokens []string, filters storage.Filters, limit int) ([]*core.SearchResult, error) {
	if len(queryTokens) == 0 {
		return []*core.SearchResult{}, nil
	}

	var results []*core.SearchResult

	err := b.WithTx(func(tx *badger.Txn) error {
		return b.forEachBookmark(tx, func(bookmark *core.Bookmark) error {
			if len(bookmark.SearchIndex) == 0 {
				return nil
			}
			if !filters.Match(bookmark) {
				return nil
			}

			var score float64
			for _, token := range queryTokens {
				score += bookmark.SearchIndex[token]
			}
			if score > 0 {
				results = append(results, &core.SearchResult{
					Bookmark: bookmark,
					Score:    score,
				})
			}
			return nil
		})
	}, false)

	if err != nil {
		return nil, err
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// sortByScore sorts results by score descending.
func sortByScore(results []*core.SearchResult) {
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float64 {
	var sum float64
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
