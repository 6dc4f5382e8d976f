package storage

import (
	"testing"
	"time"

	"github.com/stashd/stash/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookmarkRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	original := &core.Bookmark{
		Id:          42,
		URL:         "https://go.dev/blog/concurrency",
		Title:       "Go Concurrency Patterns",
		Description: "Talk notes",
		Summary:     "Patterns for structuring concurrent Go programs.",
		Content:     "Concurrency is not parallelism.",
		Domain:      "go.dev",
		Language:    "en",
		PublishedAt: now.Add(-24 * time.Hour),
		ReadingTime: 7,
		Category:    "Technology",
		Tags:        []string{"go", "concurrency"},
		Vector:      []float32{0.1, 0.2, 0.3},
		SearchIndex: map[string]float64{"concurrency": 1.0, "talk": 0.4},
		IsFavorite:  true,
		Status:      core.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data := MarshalBookmark(original)
	decoded, err := UnmarshalBookmark(data)
	require.NoError(t, err)

	assert.Equal(t, original.Id, decoded.Id)
	assert.Equal(t, original.URL, decoded.URL)
	assert.Equal(t, original.Tags, decoded.Tags)
	assert.Equal(t, original.Vector, decoded.Vector)
	assert.Equal(t, original.SearchIndex, decoded.SearchIndex)
	assert.Equal(t, original.Status, decoded.Status)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.True(t, original.PublishedAt.Equal(decoded.PublishedAt))
}

func TestUnmarshalBookmarkTruncated(t *testing.T) {
	bookmark := &core.Bookmark{URL: "https://example.com", Status: core.StatusPending}
	data := MarshalBookmark(bookmark)

	_, err := UnmarshalBookmark(data[:len(data)/2])
	assert.Error(t, err)
}

func TestIDRoundTrip(t *testing.T) {
	id := core.ID(982451653)
	decoded, err := UnmarshalID(MarshalID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}
