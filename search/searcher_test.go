package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/ai/mock"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/storage"
	"github.com/stashd/stash/storage/badger"
)

type searchEnv struct {
	bookmarks *badger.BookmarkRepository
	provider  *mock.MockProvider
	searcher  *Searcher
}

func newSearchEnv(t *testing.T) *searchEnv {
	t.Helper()

	bookmarkRepo, collectionRepo, backend, err := badger.NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(func() {
		collectionRepo.Close()
		bookmarkRepo.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider().(*mock.MockProvider)

	searcher, err := NewSearcher(bookmarkRepo, provider)
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	return &searchEnv{
		bookmarks: bookmarkRepo,
		provider:  provider,
		searcher:  searcher,
	}
}

// queryVector pins the embedding the searcher computes for any query, so
// tests control semantic ranking through the stored vectors.
func (env *searchEnv) queryVector(v []float32) {
	env.provider.GetMockEmbedder().EmbedTextFunc =
		func(ctx context.Context, text string) ([]float32, error) {
			return v, nil
		}
}

func (env *searchEnv) add(t *testing.T, bookmarks ...*core.Bookmark) []*core.Bookmark {
	t.Helper()
	added, err := env.bookmarks.AddBookmarks(context.Background(), bookmarks...)
	if err != nil {
		t.Fatalf("Failed to add bookmarks: %v", err)
	}
	return added
}

func TestSearchBlankQuery(t *testing.T) {
	env := newSearchEnv(t)
	env.add(t, &core.Bookmark{
		URL:         "https://example.com",
		SearchIndex: map[string]float64{"anything": 1.0},
		Status:      core.StatusCompleted,
	})

	for _, query := range []string{"", "   ", "\t\n"} {
		page, err := env.searcher.Search(context.Background(), query, storage.Filters{}, 10, 0)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if page.Total != 0 || len(page.Results) != 0 {
			t.Fatalf("Expected empty page for blank query %q, got %d results", query, len(page.Results))
		}
	}
}

func TestSearchFusionPrefersBothLegs(t *testing.T) {
	env := newSearchEnv(t)
	env.queryVector([]float32{1, 0})

	env.add(t,
		// In both legs
		&core.Bookmark{
			URL:         "https://both.example.com",
			Vector:      []float32{1, 0},
			SearchIndex: map[string]float64{"kubernetes": 1.0},
			Status:      core.StatusCompleted,
		},
		// Lexical only
		&core.Bookmark{
			URL:         "https://lexical.example.com",
			SearchIndex: map[string]float64{"kubernetes": 0.4},
			Status:      core.StatusCompleted,
		},
		// Semantic only
		&core.Bookmark{
			URL:         "https://semantic.example.com",
			Vector:      []float32{0.9, 0.43589},
			SearchIndex: map[string]float64{"unrelated": 1.0},
			Status:      core.StatusCompleted,
		},
	)

	page, err := env.searcher.Search(context.Background(), "kubernetes", storage.Filters{}, 10, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}

	if page.Total != 3 {
		t.Fatalf("Expected 3 fused results, got %d", page.Total)
	}
	if page.Results[0].Bookmark.URL != "https://both.example.com" {
		t.Fatalf("Expected the both-legs bookmark first, got %s", page.Results[0].Bookmark.URL)
	}
	if page.Results[0].Score <= page.Results[1].Score {
		t.Fatal("Expected both-legs score to beat single-leg scores")
	}
}

func TestSearchFailsOpenWithoutEmbedder(t *testing.T) {
	env := newSearchEnv(t)
	env.provider.GetMockEmbedder().EmbedTextFunc =
		func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		}

	env.add(t, &core.Bookmark{
		URL:         "https://example.com/doc",
		Vector:      []float32{1, 0},
		SearchIndex: map[string]float64{"grafana": 1.0},
		Status:      core.StatusCompleted,
	})

	page, err := env.searcher.Search(context.Background(), "grafana", storage.Filters{}, 10, 0)
	if err != nil {
		t.Fatalf("Expected search to fail open, got %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("Expected lexical result despite embedder outage, got %d", page.Total)
	}
}

func TestSearchTruncatesOversizedQuery(t *testing.T) {
	env := newSearchEnv(t)

	var embedded string
	env.provider.GetMockEmbedder().EmbedTextFunc =
		func(ctx context.Context, text string) ([]float32, error) {
			embedded = text
			return []float32{1, 0}, nil
		}

	env.add(t, &core.Bookmark{
		URL:         "https://example.com/doc",
		Vector:      []float32{1, 0},
		SearchIndex: map[string]float64{},
		Status:      core.StatusCompleted,
	})

	query := strings.Repeat("observability ", ai.MaxAnalysisInput)
	page, err := env.searcher.Search(context.Background(), query, storage.Filters{}, 10, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("Expected the semantic match, got %d results", page.Total)
	}
	if got := utf8.RuneCountInString(embedded); got > ai.MaxAnalysisInput {
		t.Fatalf("Expected embedded query capped at %d characters, got %d", ai.MaxAnalysisInput, got)
	}
	if !strings.HasSuffix(embedded, "...") {
		t.Fatal("Expected ellipsis marking the cut")
	}
}

func TestSearchSimilarityFloor(t *testing.T) {
	env := newSearchEnv(t)
	env.queryVector([]float32{1, 0})

	env.add(t,
		&core.Bookmark{
			URL:         "https://near.example.com",
			Vector:      []float32{0.5, 0.866},
			SearchIndex: map[string]float64{},
			Status:      core.StatusCompleted,
		},
		&core.Bookmark{
			URL:         "https://far.example.com",
			Vector:      []float32{0.1, 0.995},
			SearchIndex: map[string]float64{},
			Status:      core.StatusCompleted,
		},
	)

	page, err := env.searcher.Search(context.Background(), "anything", storage.Filters{}, 10, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("Expected only the neighbor above the floor, got %d", page.Total)
	}
	if page.Results[0].Bookmark.URL != "https://near.example.com" {
		t.Fatalf("Expected the 0.5 cosine neighbor, got %s", page.Results[0].Bookmark.URL)
	}
}

func TestSearchFiltersBothLegs(t *testing.T) {
	env := newSearchEnv(t)
	env.queryVector([]float32{1, 0})

	env.add(t,
		&core.Bookmark{
			URL:         "https://tech.example.com",
			Category:    "Technology",
			Vector:      []float32{1, 0},
			SearchIndex: map[string]float64{"terraform": 1.0},
			Status:      core.StatusCompleted,
		},
		&core.Bookmark{
			URL:         "https://news.example.com",
			Category:    "News",
			Vector:      []float32{1, 0},
			SearchIndex: map[string]float64{"terraform": 1.0},
			Status:      core.StatusCompleted,
		},
	)

	page, err := env.searcher.Search(context.Background(), "terraform",
		storage.Filters{Category: "Technology"}, 10, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("Expected filter to apply to both legs, got %d results", page.Total)
	}
	if page.Results[0].Bookmark.Category != "Technology" {
		t.Fatalf("Expected only Technology results, got %s", page.Results[0].Bookmark.Category)
	}
}

func TestSearchPagination(t *testing.T) {
	env := newSearchEnv(t)

	var bookmarks []*core.Bookmark
	for i := 0; i < 5; i++ {
		bookmarks = append(bookmarks, &core.Bookmark{
			URL:         "https://example.com/page",
			SearchIndex: map[string]float64{"ansible": float64(5-i) * 0.2},
			Status:      core.StatusCompleted,
		})
	}
	env.add(t, bookmarks...)

	page, err := env.searcher.Search(context.Background(), "ansible", storage.Filters{}, 2, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("Expected total to count all fused results, got %d", page.Total)
	}
	if len(page.Results) != 2 {
		t.Fatalf("Expected page of 2, got %d", len(page.Results))
	}

	second, err := env.searcher.Search(context.Background(), "ansible", storage.Filters{}, 2, 2)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(second.Results) != 2 {
		t.Fatalf("Expected second page of 2, got %d", len(second.Results))
	}
	if second.Results[0].Bookmark.Id == page.Results[0].Bookmark.Id {
		t.Fatal("Expected pages not to overlap")
	}

	past, err := env.searcher.Search(context.Background(), "ansible", storage.Filters{}, 2, 100)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(past.Results) != 0 || past.Total != 5 {
		t.Fatalf("Expected empty page past the end with full total, got %d/%d", len(past.Results), past.Total)
	}
}

func TestSearchDeterministicOrder(t *testing.T) {
	env := newSearchEnv(t)

	env.add(t,
		&core.Bookmark{
			URL:         "https://a.example.com",
			SearchIndex: map[string]float64{"tied": 1.0},
			Status:      core.StatusCompleted,
		},
		&core.Bookmark{
			URL:         "https://b.example.com",
			SearchIndex: map[string]float64{"tied": 1.0},
			Status:      core.StatusCompleted,
		},
	)

	var firstOrder []core.ID
	for i := 0; i < 5; i++ {
		page, err := env.searcher.Search(context.Background(), "tied", storage.Filters{}, 10, 0)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		var order []core.ID
		for _, r := range page.Results {
			order = append(order, r.Bookmark.Id)
		}
		if i == 0 {
			firstOrder = order
			continue
		}
		for j := range order {
			if order[j] != firstOrder[j] {
				t.Fatalf("Expected deterministic order, run %d differs", i)
			}
		}
	}
}

func TestFuseCrossedRanks(t *testing.T) {
	a := &core.SearchResult{Bookmark: &core.Bookmark{Id: 1}}
	b := &core.SearchResult{Bookmark: &core.Bookmark{Id: 2}}
	c := &core.SearchResult{Bookmark: &core.Bookmark{Id: 3}}
	d := &core.SearchResult{Bookmark: &core.Bookmark{Id: 4}}

	// a and b swap ranks between legs; c and d each trail one leg
	fused := fuse(
		[]*core.SearchResult{a, b, c},
		[]*core.SearchResult{b, a, d},
	)

	scores := make(map[core.ID]float64, len(fused))
	for _, r := range fused {
		scores[r.Bookmark.Id] = r.Score
	}

	if math.Abs(scores[1]-(1.0/61+1.0/62)) > 1e-12 {
		t.Fatalf("Unexpected score for rank-0+rank-1 item: %v", scores[1])
	}
	if scores[1] != scores[2] {
		t.Fatal("Expected swapped-rank items to score identically")
	}
	if math.Abs(scores[3]-1.0/63) > 1e-12 || scores[3] != scores[4] {
		t.Fatalf("Unexpected trailing scores: %v, %v", scores[3], scores[4])
	}

	wantOrder := []core.ID{1, 2, 3, 4}
	for i, want := range wantOrder {
		if fused[i].Bookmark.Id != want {
			t.Fatalf("Expected ID %d at position %d, got %d", want, i, fused[i].Bookmark.Id)
		}
	}
}

func TestFuseEqualRanksAcrossLegs(t *testing.T) {
	a := &core.SearchResult{Bookmark: &core.Bookmark{Id: 1}}
	b := &core.SearchResult{Bookmark: &core.Bookmark{Id: 2}}
	c := &core.SearchResult{Bookmark: &core.Bookmark{Id: 3}}
	d := &core.SearchResult{Bookmark: &core.Bookmark{Id: 4}}

	// a and c in one leg, b and d in the other: equal ranks score equally
	fused := fuse([]*core.SearchResult{a, c}, []*core.SearchResult{b, d})

	if len(fused) != 4 {
		t.Fatalf("Expected 4 fused results, got %d", len(fused))
	}
	if fused[0].Score != fused[1].Score {
		t.Fatal("Expected the two rank-0 items to score equally")
	}
	if fused[2].Score != fused[3].Score {
		t.Fatal("Expected the two rank-1 items to score equally")
	}
	if fused[1].Score <= fused[2].Score {
		t.Fatal("Expected rank-0 items to outscore rank-1 items")
	}

	wantOrder := []core.ID{1, 2, 3, 4}
	for i, want := range wantOrder {
		if fused[i].Bookmark.Id != want {
			t.Fatalf("Expected ID %d at position %d, got %d", want, i, fused[i].Bookmark.Id)
		}
	}
}

func TestFuseTieBreaksByID(t *testing.T) {
	a := &core.SearchResult{Bookmark: &core.Bookmark{Id: 2}, Score: 0.9}
	b := &core.SearchResult{Bookmark: &core.Bookmark{Id: 1}, Score: 0.8}

	// Two single-item legs: both contribute 1/(k+1), a perfect tie
	fused := fuse([]*core.SearchResult{a}, []*core.SearchResult{b})

	if len(fused) != 2 {
		t.Fatalf("Expected 2 fused results, got %d", len(fused))
	}
	if fused[0].Bookmark.Id != 1 {
		t.Fatalf("Expected tie broken by lower ID, got %d first", fused[0].Bookmark.Id)
	}
}
