package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/stashd/stash/core"
)

// Key prefixes for different data types
const (
	bookmarkPrefix           = "bkmrec"
	bookmarkDatePrefix       = "bkmrecd"
	bookmarkCollectionPrefix = "bkmrecc" // bookmark -> collections
	collectionBookmarkPrefix = "bkmrecm" // collection -> bookmarks (membership)
	bookmarkIDSeq            = "bkmrecseq"
	collectionPrefix         = "colrec"
	collectionNamePrefix     = "colname"
)

// makeBookmarkKey generates a key for a bookmark by ID.
func makeBookmarkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", bookmarkPrefix, id))
}

// makeBookmarkDateKey generates a composite key for the creation-date index.
// Format: prefix:timestamp:id
func makeBookmarkDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := bookmarkDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialBookmarkDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialBookmarkDateKey(timestamp time.Time) []byte {
	prefix := bookmarkDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeMembershipKey generates a composite key indexing one direction of the
// bookmark-collection relation. The key's existence is the membership; links
// are idempotent because setting the same key twice is a no-op.
func makeMembershipKey(prefix string, first, second core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(first))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(second))
	return buf
}

// makePartialMembershipKey generates a partial key for membership scans.
func makePartialMembershipKey(prefix string, first core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(first))
	return buf
}

// makeCollectionKey generates a key for a collection by ID.
func makeCollectionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", collectionPrefix, id))
}

// makeCollectionNameKey generates a key for collection lookup by exact name.
func makeCollectionNameKey(name string) []byte {
	return []byte(collectionNamePrefix + ":" + name)
}
