package badger

// NewMemoryRepositories creates a bookmark repository and a collection
// repository over a shared in-memory backend. Intended for tests.
func NewMemoryRepositories() (*BookmarkRepository, *CollectionRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	bookmarkRepo, err := NewBookmarkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	collectionRepo, err := NewCollectionRepository(backend)
	if err != nil {
		bookmarkRepo.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return bookmarkRepo, collectionRepo, backend, nil
}
