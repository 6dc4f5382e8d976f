package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

func newTestRepos(t *testing.T) (*BookmarkRepository, *CollectionRepository) {
	t.Helper()
	bookmarkRepo, collectionRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(func() {
		collectionRepo.Close()
		bookmarkRepo.Close()
		backend.Close()
	})
	return bookmarkRepo, collectionRepo
}

func TestBookmarkBasics(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	bookmark := &core.Bookmark{
		URL:    "https://example.com/article",
		Title:  "An Article",
		Domain: "example.com",
		Status: core.StatusPending,
	}

	added, err := repo.AddBookmarks(ctx, bookmark)
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("Expected 1 bookmark, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added[0].CreatedAt.IsZero() || added[0].UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set on add")
	}

	retrieved, err := repo.GetBookmark(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get bookmark: %v", err)
	}
	if retrieved.URL != "https://example.com/article" {
		t.Fatalf("Expected URL to round-trip, got '%s'", retrieved.URL)
	}
	if retrieved.Status != core.StatusPending {
		t.Fatalf("Expected pending status, got %v", retrieved.Status)
	}
}

func TestGetBookmarkNotFound(t *testing.T) {
	repo, _ := newTestRepos(t)

	_, err := repo.GetBookmark(context.Background(), core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBookmark(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	added, err := repo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Title:  "Before",
		Status: core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	createdAt := added[0].CreatedAt

	added[0].Title = "After"
	added[0].Status = core.StatusProcessing
	if _, err := repo.UpdateBookmarks(ctx, added[0]); err != nil {
		t.Fatalf("Failed to update bookmark: %v", err)
	}

	retrieved, err := repo.GetBookmark(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get bookmark: %v", err)
	}
	if retrieved.Title != "After" {
		t.Fatalf("Expected updated title, got '%s'", retrieved.Title)
	}
	if !retrieved.CreatedAt.Equal(createdAt) {
		t.Fatal("Expected CreatedAt to be preserved on update")
	}
	if retrieved.UpdatedAt.Before(createdAt) {
		t.Fatal("Expected UpdatedAt to be bumped on update")
	}
}

func TestPatchBookmark(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	added, err := repo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Tags:   []string{"go"},
		Status: core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	patched, err := repo.PatchBookmark(ctx, added[0].Id, func(b *core.Bookmark) error {
		b.IsFavorite = true
		b.Tags = core.MergeTags(b.Tags, []string{"databases"})
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to patch bookmark: %v", err)
	}
	if !patched.IsFavorite {
		t.Fatal("Expected patch to set favorite flag")
	}
	if len(patched.Tags) != 2 {
		t.Fatalf("Expected 2 tags after patch, got %v", patched.Tags)
	}

	retrieved, err := repo.GetBookmark(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get bookmark: %v", err)
	}
	if !retrieved.IsFavorite {
		t.Fatal("Expected patch to persist")
	}
}

func TestPatchBookmarkErrorAborts(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	added, err := repo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Status: core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	patchErr := errors.New("nope")
	_, err = repo.PatchBookmark(ctx, added[0].Id, func(b *core.Bookmark) error {
		b.IsArchived = true
		return patchErr
	})
	if !errors.Is(err, patchErr) {
		t.Fatalf("Expected patch error to propagate, got %v", err)
	}

	retrieved, err := repo.GetBookmark(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get bookmark: %v", err)
	}
	if retrieved.IsArchived {
		t.Fatal("Expected failed patch to leave record unchanged")
	}
}

func TestDeleteBookmark(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	added, err := repo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Status: core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	if err := repo.DeleteBookmarks(ctx, added[0].Id); err != nil {
		t.Fatalf("Failed to delete bookmark: %v", err)
	}

	_, err = repo.GetBookmark(ctx, added[0].Id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	// Recent listing must not surface the dangling date index entry
	recent, err := repo.GetRecentBookmarks(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get recent bookmarks: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("Expected no recent bookmarks after delete, got %d", len(recent))
	}
}

func TestGetRecentBookmarks(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
	}
	for _, u := range urls {
		if _, err := repo.AddBookmarks(ctx, &core.Bookmark{URL: u, Status: core.StatusPending}); err != nil {
			t.Fatalf("Failed to add bookmark: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	recent, err := repo.GetRecentBookmarks(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get recent bookmarks: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent bookmarks, got %d", len(recent))
	}
	if recent[0].URL != "https://example.com/4" {
		t.Fatalf("Expected newest bookmark first, got '%s'", recent[0].URL)
	}
	if recent[1].URL != "https://example.com/3" {
		t.Fatalf("Expected second-newest bookmark second, got '%s'", recent[1].URL)
	}
}

func TestGetBookmarksByDateRange(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-1 * time.Second)

	if _, err := repo.AddBookmarks(ctx,
		&core.Bookmark{URL: "https://example.com/a", Status: core.StatusPending},
		&core.Bookmark{URL: "https://example.com/b", Status: core.StatusPending},
	); err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}

	after := time.Now().UTC().Add(1 * time.Second)

	results, err := repo.GetBookmarksByDateRange(ctx, before, after)
	if err != nil {
		t.Fatalf("Failed to get bookmarks by date range: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 bookmarks in range, got %d", len(results))
	}

	// A window entirely in the past matches nothing
	results, err = repo.GetBookmarksByDateRange(ctx, before.Add(-1*time.Hour), before)
	if err != nil {
		t.Fatalf("Failed to get bookmarks by date range: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no bookmarks in past window, got %d", len(results))
	}
}

func TestQueryFilters(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	favorite := true
	if _, err := repo.AddBookmarks(ctx,
		&core.Bookmark{URL: "https://go.dev/blog", Category: "Technology", IsFavorite: true, Status: core.StatusCompleted},
		&core.Bookmark{URL: "https://example.com/recipes", Category: "Food", Status: core.StatusCompleted},
		&core.Bookmark{URL: "https://go.dev/doc", Category: "Technology", Status: core.StatusCompleted},
	); err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}

	results, err := repo.Query(ctx, storage.Filters{Category: "Technology"})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 technology bookmarks, got %d", len(results))
	}

	results, err = repo.Query(ctx, storage.Filters{Category: "Technology", IsFavorite: &favorite})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 favorite technology bookmark, got %d", len(results))
	}
	if results[0].URL != "https://go.dev/blog" {
		t.Fatalf("Expected the favorite bookmark, got '%s'", results[0].URL)
	}
}
