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


package core

import (
	"fmt"
	"net/url"
)

// ValidateBookmark validates a Bookmark according to domain rules.
//
// Validation rules:
//   - URL must be present and parse as http or https
//   - Status must be a known ProcessingStatus
//
// NOT validated (populated by the pipeline):
//   - Vector (empty until the embedding stage runs)
//   - SearchIndex (empty until the index stage runs)
//   - ID (0 is valid before the store assigns a sequence ID)
func ValidateBookmark(bookmark *Bookmark) error {
	if bookmark == nil {
		return fmt.Errorf("%w: bookmark is nil", ErrInvalidBookmark)
	}

	if bookmark.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBookmark, ErrEmptyURL)
	}

	if err := ValidateURL(bookmark.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBookmark, err)
	}

	if err := ValidateStatus(bookmark.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBookmark, err)
	}

	return nil
}

// ValidateCollection validates a Collection according to domain rules.
func ValidateCollection(collection *Collection) error {
	if collection == nil {
		return fmt.Errorf("%w: collection is nil", ErrInvalidCollection)
	}

	if collection.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrEmptyCollectionName)
	}

	return nil
}

// ValidateURL checks that a URL parses and uses the http or https scheme.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// ValidateStatus validates that a ProcessingStatus has a known value.
func ValidateStatus(status ProcessingStatus) error {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
}
