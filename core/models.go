package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"net/url"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ProcessingStatus tracks where a bookmark is in the ingestion pipeline.
type ProcessingStatus int

const (
	// StatusPending means the bookmark has been created but not yet claimed by a worker.
	StatusPending ProcessingStatus = iota + 1
	// StatusProcessing means a pipeline worker has claimed the bookmark.
	StatusProcessing
	// StatusCompleted means the pipeline finished, possibly with degraded enrichment.
	StatusCompleted
	// StatusFailed means content acquisition failed and the run was aborted.
	StatusFailed
)

// String returns the lowercase name consumers display for the status.
func (s ProcessingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a status change is allowed.
// Within a run the status moves pending -> processing -> completed, with
// processing -> failed on unrecoverable error. Re-enqueueing a pending or
// failed bookmark moves it back to processing. Re-delivery of an already
// completed unit is allowed to re-enter processing (at-least-once delivery).
func CanTransition(from, to ProcessingStatus) bool {
	switch to {
	case StatusProcessing:
		return from == StatusPending || from == StatusFailed || from == StatusProcessing || from == StatusCompleted
	case StatusCompleted, StatusFailed:
		return from == StatusProcessing
	case StatusPending:
		return false
	default:
		return false
	}
}

// Bookmark is the central record: a saved URL plus everything the ingestion
// pipeline has learned about it so far. Enrichment fields stay empty until
// the relevant stage completes; a bookmark with only a URL and a status is
// valid and renderable.
type Bookmark struct {
	Id           ID
	URL          string
	Title        string
	Description  string
	Summary      string
	Content      string // Plain-text extract of the page body
	HTMLSnapshot string // Sanitized HTML, safe for rendering
	FaviconURL   string
	OGImageURL   string
	Domain       string
	Language     string
	PublishedAt  time.Time // Zero when the page carried no publish date
	ReadingTime  int       // Estimated minutes, 0 when unknown

	Category string
	Tags     []string

	Vector      []float32          // Embedding vector for semantic search (populated by the pipeline)
	SearchIndex map[string]float64 // Weighted lexical index, token -> tier weight (derived, never hand-edited)

	IsFavorite bool
	IsArchived bool
	IsRead     bool

	Status    ProcessingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasContent reports whether any text content was acquired for the bookmark.
func (b *Bookmark) HasContent() bool {
	return strings.TrimSpace(b.Content) != ""
}

// Collection is a named group of bookmarks. Collections are created by users
// or automatically by the pipeline from LLM categories.
type Collection struct {
	Id          ID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CollectionIDFromName derives the content-based ID for a collection.
// Find-or-create by name is idempotent because the name alone determines the ID.
func CollectionIDFromName(name string) ID {
	return IDFromContent("collection:" + name)
}

// ParsedContent holds the fields a fetcher extracted from a web page.
// Every field except Domain may be empty.
type ParsedContent struct {
	Title       string
	Description string
	Content     string
	HTML        string
	FaviconURL  string
	OGImageURL  string
	Domain      string
	Language    string
	PublishedAt time.Time
	ReadingTime int
}

// Analysis is the structured result of LLM content analysis.
type Analysis struct {
	Summary  string
	Category string
	Tags     []string
}

// SearchResult pairs a bookmark with its relevance score.
type SearchResult struct {
	Bookmark *Bookmark
	Score    float64
}

// Page is one page of search results. Total counts every distinct item
// matched by either search leg, not just the items on this page.
type Page struct {
	Results []*SearchResult
	Total   int
	Limit   int
	Offset  int
}

// ExtractDomain returns the hostname of a URL with any leading "www." removed.
// Returns the input unchanged if it does not parse as a URL.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// NormalizeTags lowercases, trims, and de-duplicates tags, preserving first
// occurrence order. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.ToLower(strings.TrimSpace(tag))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

// MergeTags returns the case-normalized union of two tag sets.
// Existing tags keep their position; new tags are appended.
func MergeTags(existing, incoming []string) []string {
	return NormalizeTags(append(append([]string{}, existing...), incoming...))
}
