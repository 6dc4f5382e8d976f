package badger

import (
	"context"
	"math"
	"testing"

	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
)

func TestFindSimilar(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	if _, err := repo.AddBookmarks(ctx,
		&core.Bookmark{URL: "https://a.example.com", Vector: []float32{1, 0, 0}, Status: core.StatusCompleted},
		&core.Bookmark{URL: "https://b.example.com", Vector: []float32{0.8, 0.6, 0}, Status: core.StatusCompleted},
		&core.Bookmark{URL: "https://c.example.com", Vector: []float32{0, 1, 0}, Status: core.StatusCompleted},
		// No embedding yet; must be skipped
		&core.Bookmark{URL: "https://d.example.com", Status: core.StatusPending},
	); err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, storage.Filters{}, 0.25, 10)
	if err != nil {
		t.Fatalf("Failed to find similar: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results above floor, got %d", len(results))
	}
	if results[0].Bookmark.URL != "https://a.example.com" {
		t.Fatalf("Expected exact match first, got '%s'", results[0].Bookmark.URL)
	}
	if results[0].Score <= results[1].Score {
		t.Fatal("Expected results sorted by descending similarity")
	}
	// Orthogonal vector scores 0.0, below the floor
	for _, res := range results {
		if res.Bookmark.URL == "https://c.example.com" {
			t.Fatal("Expected orthogonal vector to be filtered out")
		}
	}
}

func TestFindSimilarRespectsFilters(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	if _, err := repo.AddBookmarks(ctx,
		&core.Bookmark{URL: "https://a.example.com", Category: "Technology", Vector: []float32{1, 0}, Status: core.StatusCompleted},
		&core.Bookmark{URL: "https://b.example.com", Category: "Science", Vector: []float32{1, 0}, Status: core.StatusCompleted},
	); err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}

	results, err := repo.FindSimilar(ctx, []float32{1, 0}, storage.Filters{Category: "Science"}, 0.25, 10)
	if err != nil {
		t.Fatalf("Failed to find similar: %v", err)
	}
	if len(results) != 1 || results[0].Bookmark.Category != "Science" {
		t.Fatalf("Expected only the Science bookmark, got %d results", len(results))
	}
}

func TestSearchLexical(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	if _, err := repo.AddBookmarks(ctx,
		&core.Bookmark{
			URL:         "https://go.dev/blog/concurrency",
			SearchIndex: map[string]float64{"concurrency": 1.0, "patterns": 0.4},
			Status:      core.StatusCompleted,
		},
		&core.Bookmark{
			URL:         "https://example.com/cooking",
			SearchIndex: map[string]float64{"sourdough": 1.0},
			Status:      core.StatusCompleted,
		},
		&core.Bookmark{
			URL:         "https://example.com/notes",
			SearchIndex: map[string]float64{"concurrency": 0.1},
			Status:      core.StatusCompleted,
		},
	); err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}

	results, err := repo.SearchLexical(ctx, []string{"concurrency", "patterns"}, storage.Filters{}, 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(results))
	}
	if results[0].Bookmark.URL != "https://go.dev/blog/concurrency" {
		t.Fatalf("Expected the title-tier match first, got '%s'", results[0].Bookmark.URL)
	}
	if math.Abs(results[0].Score-1.4) > 1e-9 {
		t.Fatalf("Expected summed token weights 1.4, got %f", results[0].Score)
	}
}

func TestSearchLexicalEmptyTokens(t *testing.T) {
	repo, _ := newTestRepos(t)

	results, err := repo.SearchLexical(context.Background(), nil, storage.Filters{}, 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no results for empty token list, got %d", len(results))
	}
}

func TestSearchLexicalLimit(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.AddBookmarks(ctx, &core.Bookmark{
			URL:         "https://example.com",
			SearchIndex: map[string]float64{"term": float64(i+1) * 0.1},
			Status:      core.StatusCompleted,
		}); err != nil {
			t.Fatalf("Failed to add bookmark: %v", err)
		}
	}

	results, err := repo.SearchLexical(ctx, []string{"term"}, storage.Filters{}, 3)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected limit of 3, got %d", len(results))
	}
	if results[0].Score < results[1].Score || results[1].Score < results[2].Score {
		t.Fatal("Expected results sorted by descending score")
	}
}

func TestDotProduct(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical unit", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"mismatched length", []float32{1, 1, 1}, []float32{2}, 2.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dotProduct(tc.a, tc.b)
			if got != tc.want {
				t.Fatalf("dotProduct(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
