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

import "errors"

var (
	// ErrBookmarkRepositoryRequired indicates a nil bookmark repository.
	ErrBookmarkRepositoryRequired = errors.New("bookmark repository is required")

	// ErrCollectionRepositoryRequired indicates a nil collection repository.
	ErrCollectionRepositoryRequired = errors.New("collection repository is required")

	// ErrAIProviderRequired indicates a nil AI provider.
	ErrAIProviderRequired = errors.New("ai provider is required")

	// ErrFetcherRequired indicates a nil fetcher.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrQueueClosed indicates an operation on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)
