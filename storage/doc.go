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


// Package storage provides the storage abstraction layer for stash.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion pipeline and the search engine. It allows
// for different storage backends (BadgerDB, in-memory, etc.) to be used
// interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a "return interface" pattern for public constructors
// to enforce abstraction and enable multiple storage backend implementations:
//
//	repo, err := badger.NewBookmarkRepository(backend)  // used as storage.BookmarkRepository
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: transaction support and lifecycle
//   - BookmarkRepository: bookmark CRUD, filtered queries, and the vector and
//     lexical search primitives the hybrid search engine is built on
//   - CollectionRepository: collections and idempotent bookmark membership
//
// # Usage
//
// Create repositories over a shared backend:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	bookmarkRepo, collectionRepo, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines. Pipeline workers for different bookmarks
// run fully in parallel against the same repositories.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support.
package storage
