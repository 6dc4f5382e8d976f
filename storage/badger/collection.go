package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

// CollectionRepository implements storage.CollectionRepository for BadgerDB.
type CollectionRepository struct {
	backend *Backend
}

var _ storage.CollectionRepository = (*CollectionRepository)(nil)

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(backend *Backend) (*CollectionRepository, error) {
	return &CollectionRepository{backend: backend}, nil
}

// Close is a no-op; collections hold no sequence.
func (r *CollectionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CollectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetOrCreateCollection returns the collection with the given name, creating
// it if it does not exist. Collection IDs derive from the name, so repeated
// calls with the same name always resolve to the same collection.
func (r *CollectionRepository) GetOrCreateCollection(ctx context.Context, name string) (*core.Collection, error) {
	if name == "" {
		return nil, core.ErrEmptyCollectionName
	}

	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := r.readCollection(tx, makeCollectionNameKey(name))
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		collection := &core.Collection{
			Id:        core.CollectionIDFromName(name),
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		collection.UpdatedAt = collection.CreatedAt

		value := storage.MarshalCollection(collection)
		if err := tx.Set(makeCollectionKey(collection.Id), value); err != nil {
			return err
		}
		// Name lookup key stores the same record so lookups by name avoid a
		// second read
		if err := tx.Set(makeCollectionNameKey(name), value); err != nil {
			return err
		}

		result = collection
		return tx.Commit()
	}, true)

	return result, err
}

// GetCollection retrieves a collection by ID.
func (r *CollectionRepository) GetCollection(ctx context.Context, id core.ID) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCollection(tx, makeCollectionKey(id))
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

// FindCollectionByName retrieves a collection by its exact name.
// Returns nil without error when no collection has that name.
func (r *CollectionRepository) FindCollectionByName(ctx context.Context, name string) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCollection(tx, makeCollectionNameKey(name))
		return err
	}, false)
	return result, err
}

// GetAllCollections retrieves every collection.
func (r *CollectionRepository) GetAllCollections(ctx context.Context) ([]*core.Collection, error) {
	var results []*core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var collection *core.Collection
			err := iter.Item().Value(func(val []byte) error {
				var err error
				collection, err = storage.UnmarshalCollection(val)
				return err
			})
			if err != nil {
				return err
			}
			if collection != nil {
				results = append(results, collection)
			}
		}
		return nil
	}, false)
	return results, err
}

// LinkBookmark records bookmark membership in a collection. Linking an
// already-linked pair is a no-op.
func (r *CollectionRepository) LinkBookmark(ctx context.Context, collectionID, bookmarkID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		collection, err := r.readCollection(tx, makeCollectionKey(collectionID))
		if err != nil {
			return err
		}
		if collection == nil {
			return storage.ErrNotFound
		}

		// Both directions so either side can be scanned
		forward := makeMembershipKey(collectionBookmarkPrefix, collectionID, bookmarkID)
		if err := tx.Set(forward, []byte{}); err != nil {
			return err
		}
		reverse := makeMembershipKey(bookmarkCollectionPrefix, bookmarkID, collectionID)
		if err := tx.Set(reverse, []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UnlinkBookmark removes bookmark membership from a collection.
func (r *CollectionRepository) UnlinkBookmark(ctx context.Context, collectionID, bookmarkID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		forward := makeMembershipKey(collectionBookmarkPrefix, collectionID, bookmarkID)
		if err := tx.Delete(forward); err != nil {
			return err
		}
		reverse := makeMembershipKey(bookmarkCollectionPrefix, bookmarkID, collectionID)
		if err := tx.Delete(reverse); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetBookmarksByCollection retrieves all bookmarks linked to a collection.
func (r *CollectionRepository) GetBookmarksByCollection(ctx context.Context, collectionID core.ID) ([]*core.Bookmark, error) {
	var results []*core.Bookmark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanMembership(tx, collectionBookmarkPrefix, collectionID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			item, err := tx.Get(makeBookmarkKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			var bookmark *core.Bookmark
			if err := item.Value(func(val []byte) error {
				var err error
				bookmark, err = storage.UnmarshalBookmark(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, bookmark)
		}
		return nil
	}, false)
	return results, err
}

// GetCollectionsByBookmark retrieves all collections a bookmark belongs to.
func (r *CollectionRepository) GetCollectionsByBookmark(ctx context.Context, bookmarkID core.ID) ([]*core.Collection, error) {
	var results []*core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanMembership(tx, bookmarkCollectionPrefix, bookmarkID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			collection, err := r.readCollection(tx, makeCollectionKey(id))
			if err != nil {
				return err
			}
			if collection != nil {
				results = append(results, collection)
			}
		}
		return nil
	}, false)
	return results, err
}

// readCollection reads a collection from the transaction.
// Returns nil without error if the key does not exist.
func (r *CollectionRepository) readCollection(tx *badger.Txn, key []byte) (*core.Collection, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var collection *core.Collection
	err = item.Value(func(val []byte) error {
		var err error
		collection, err = storage.UnmarshalCollection(val)
		return err
	})
	return collection, err
}

// scanMembership collects the second ID of every membership key under
// prefix:first.
func scanMembership(tx *badger.Txn, prefix string, first core.ID) ([]core.ID, error) {
	partial := makePartialMembershipKey(prefix, first)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = partial
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) != len(partial)+8 {
			continue
		}
		ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(partial):])))
	}
	return ids, nil
}

// deleteMemberships removes every membership entry for a bookmark, in both
// directions. Used when the bookmark itself is deleted.
func deleteMemberships(tx *badger.Txn, bookmarkID core.ID) error {
	collectionIDs, err := scanMembership(tx, bookmarkCollectionPrefix, bookmarkID)
	if err != nil {
		return err
	}
	for _, collectionID := range collectionIDs {
		if err := tx.Delete(makeMembershipKey(bookmarkCollectionPrefix, bookmarkID, collectionID)); err != nil {
			return err
		}
		if err := tx.Delete(makeMembershipKey(collectionBookmarkPrefix, collectionID, bookmarkID)); err != nil {
			return err
		}
	}
	return nil
}
