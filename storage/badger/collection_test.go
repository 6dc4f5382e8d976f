package badger

import (
	"context"
	"testing"

	"github.com/stashd/stash/core"
)

func TestGetOrCreateCollectionIdempotent(t *testing.T) {
	_, repo := newTestRepos(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateCollection(ctx, "Technology")
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if first.Id == 0 {
		t.Fatal("Expected non-zero collection ID")
	}
	if first.Id != core.CollectionIDFromName("Technology") {
		t.Fatal("Expected collection ID to derive from name")
	}

	second, err := repo.GetOrCreateCollection(ctx, "Technology")
	if err != nil {
		t.Fatalf("Failed on second get-or-create: %v", err)
	}
	if second.Id != first.Id {
		t.Fatalf("Expected same collection, got %d and %d", first.Id, second.Id)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("Expected second call to return the existing record")
	}
}

func TestGetOrCreateCollectionEmptyName(t *testing.T) {
	_, repo := newTestRepos(t)

	_, err := repo.GetOrCreateCollection(context.Background(), "")
	if err == nil {
		t.Fatal("Expected error for empty collection name")
	}
}

func TestFindCollectionByName(t *testing.T) {
	_, repo := newTestRepos(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateCollection(ctx, "Science"); err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	found, err := repo.FindCollectionByName(ctx, "Science")
	if err != nil {
		t.Fatalf("Failed to find collection: %v", err)
	}
	if found == nil || found.Name != "Science" {
		t.Fatalf("Expected to find 'Science', got %v", found)
	}

	missing, err := repo.FindCollectionByName(ctx, "Nope")
	if err != nil {
		t.Fatalf("Unexpected error for missing collection: %v", err)
	}
	if missing != nil {
		t.Fatal("Expected nil for missing collection")
	}
}

func TestLinkBookmarkIdempotent(t *testing.T) {
	bookmarkRepo, collectionRepo := newTestRepos(t)
	ctx := context.Background()

	added, err := bookmarkRepo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Status: core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	collection, err := collectionRepo.GetOrCreateCollection(ctx, "Technology")
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	// Link twice; membership must not duplicate
	for i := 0; i < 2; i++ {
		if err := collectionRepo.LinkBookmark(ctx, collection.Id, added[0].Id); err != nil {
			t.Fatalf("Failed to link bookmark: %v", err)
		}
	}

	bookmarks, err := collectionRepo.GetBookmarksByCollection(ctx, collection.Id)
	if err != nil {
		t.Fatalf("Failed to get bookmarks by collection: %v", err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("Expected 1 bookmark in collection, got %d", len(bookmarks))
	}
	if bookmarks[0].URL != "https://example.com" {
		t.Fatalf("Expected membership lookup to return the full record, got %v", bookmarks[0])
	}

	collections, err := collectionRepo.GetCollectionsByBookmark(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get collections by bookmark: %v", err)
	}
	if len(collections) != 1 || collections[0].Name != "Technology" {
		t.Fatalf("Expected reverse lookup to find 'Technology', got %v", collections)
	}
}

func TestUnlinkBookmark(t *testing.T) {
	bookmarkRepo, collectionRepo := newTestRepos(t)
	ctx := context.Background()

	added, err := bookmarkRepo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Status: core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	collection, err := collectionRepo.GetOrCreateCollection(ctx, "Technology")
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	if err := collectionRepo.LinkBookmark(ctx, collection.Id, added[0].Id); err != nil {
		t.Fatalf("Failed to link bookmark: %v", err)
	}
	if err := collectionRepo.UnlinkBookmark(ctx, collection.Id, added[0].Id); err != nil {
		t.Fatalf("Failed to unlink bookmark: %v", err)
	}

	bookmarks, err := collectionRepo.GetBookmarksByCollection(ctx, collection.Id)
	if err != nil {
		t.Fatalf("Failed to get bookmarks by collection: %v", err)
	}
	if len(bookmarks) != 0 {
		t.Fatalf("Expected empty collection after unlink, got %d", len(bookmarks))
	}
}

func TestDeleteBookmarkCleansMemberships(t *testing.T) {
	bookmarkRepo, collectionRepo := newTestRepos(t)
	ctx := context.Background()

	added, err := bookmarkRepo.AddBookmarks(ctx, &core.Bookmark{
		URL:    "https://example.com",
		Status: core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Failed to add bookmark: %v", err)
	}

	collection, err := collectionRepo.GetOrCreateCollection(ctx, "Technology")
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if err := collectionRepo.LinkBookmark(ctx, collection.Id, added[0].Id); err != nil {
		t.Fatalf("Failed to link bookmark: %v", err)
	}

	if err := bookmarkRepo.DeleteBookmarks(ctx, added[0].Id); err != nil {
		t.Fatalf("Failed to delete bookmark: %v", err)
	}

	bookmarks, err := collectionRepo.GetBookmarksByCollection(ctx, collection.Id)
	if err != nil {
		t.Fatalf("Failed to get bookmarks by collection: %v", err)
	}
	if len(bookmarks) != 0 {
		t.Fatalf("Expected membership cleaned up on delete, got %d", len(bookmarks))
	}
}

func TestGetAllCollections(t *testing.T) {
	_, repo := newTestRepos(t)
	ctx := context.Background()

	for _, name := range []string{"Technology", "Science", "Food & Cooking"} {
		if _, err := repo.GetOrCreateCollection(ctx, name); err != nil {
			t.Fatalf("Failed to create collection %q: %v", name, err)
		}
	}

	all, err := repo.GetAllCollections(ctx)
	if err != nil {
		t.Fatalf("Failed to get all collections: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 collections, got %d", len(all))
	}
}
