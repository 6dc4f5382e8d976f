package storage

import (
	"strings"
	"time"

	"github.com/stashd/stash/core"
)

// Filters are optional equality/membership constraints applied to bookmark
// queries. Zero-valued fields are ignored; set fields are ANDed together.
// Both search legs apply the same filters, so a result can never satisfy
// one leg's constraints but not the other's.
type Filters struct {
	Category string   // Exact match
	Domain   string   // Exact match
	Tags     []string // Any-overlap with the bookmark's tags, case-insensitive

	IsFavorite *bool
	IsArchived *bool
	IsRead     *bool

	CreatedAfter  time.Time // Inclusive lower bound on CreatedAt
	CreatedBefore time.Time // Exclusive upper bound on CreatedAt
}

// IsZero reports whether no constraint is set.
func (f Filters) IsZero() bool {
	return f.Category == "" && f.Domain == "" && len(f.Tags) == 0 &&
		f.IsFavorite == nil && f.IsArchived == nil && f.IsRead == nil &&
		f.CreatedAfter.IsZero() && f.CreatedBefore.IsZero()
}

// Match reports whether a bookmark satisfies every set constraint.
func (f Filters) Match(b *core.Bookmark) bool {
	if b == nil {
		return false
	}
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.Domain != "" && b.Domain != f.Domain {
		return false
	}
	if len(f.Tags) > 0 && !tagsOverlap(f.Tags, b.Tags) {
		return false
	}
	if f.IsFavorite != nil && b.IsFavorite != *f.IsFavorite {
		return false
	}
	if f.IsArchived != nil && b.IsArchived != *f.IsArchived {
		return false
	}
	if f.IsRead != nil && b.IsRead != *f.IsRead {
		return false
	}
	if !f.CreatedAfter.IsZero() && b.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !b.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

// tagsOverlap reports whether any wanted tag appears in the bookmark's tags,
// ignoring case.
func tagsOverlap(wanted, actual []string) bool {
	if len(actual) == 0 {
		return false
	}
	set := make(map[string]bool, len(actual))
	for _, tag := range actual {
		set[strings.ToLower(tag)] = true
	}
	for _, tag := range wanted {
		if set[strings.ToLower(tag)] {
			return true
		}
	}
	return false
}
