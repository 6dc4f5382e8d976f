package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/index"
	"github.com/stashd/stash/storage"
)

const (
	// legDepth is how many candidates each search leg contributes to
	// fusion.
	legDepth = 50

	// minSimilarity is the cosine floor for the semantic leg. Below it,
	// vector neighbors are noise rather than related content.
	minSimilarity = 0.25

	// DefaultLimit is the page size when the caller doesn't set one.
	DefaultLimit = 20

	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Searcher provides hybrid lexical and semantic search over bookmarks.
type Searcher struct {
	bookmarks storage.BookmarkRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	bookmarks storage.BookmarkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if bookmarks == nil {
		return nil, ErrBookmarkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		bookmarks: bookmarks,
		embedder:  provider.Embedder(),
		logger:    slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the hybrid query and returns one page of fused results.
func (s *Searcher) Search(ctx context.Context, query string, filters storage.Filters, limit, offset int) (*core.Page, error) {
	return s.SearchWithMonitor(ctx, query, filters, limit, offset, nil)
}

// SearchWithMonitor runs the hybrid query with monitoring. The monitor
// receives callbacks at each stage of the search process.
//
// Both legs run against the same filters, so filters compose with ranking
// as pure conjunctions. The semantic leg is fail-open: if the embedding
// service is down, lexical results still come back.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filters storage.Filters, limit, offset int, monitor SearchMonitor) (*core.Page, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &core.Page{Results: []*core.SearchResult{}, Total: 0, Limit: limit, Offset: offset}, nil
	}

	monitor.Start(query)

	semantic := s.semanticLeg(ctx, query, filters)
	monitor.AfterSemanticLeg(semantic)

	lexical, err := s.lexicalLeg(ctx, query, filters)
	if err != nil {
		return nil, err
	}
	monitor.AfterLexicalLeg(lexical)

	fused := fuse(semantic, lexical)
	monitor.AfterFusion(fused)

	page := &core.Page{
		Results: paginate(fused, limit, offset),
		Total:   len(fused),
		Limit:   limit,
		Offset:  offset,
	}
	monitor.Finish(page)

	return page, nil
}

// semanticLeg embeds the query and ranks stored vectors against it.
// Failures degrade to an empty leg instead of failing the whole search.
func (s *Searcher) semanticLeg(ctx context.Context, query string, filters storage.Filters) []*core.SearchResult {
	embedding, err := s.embedder.EmbedText(ctx, ai.TruncateText(query, ai.MaxAnalysisInput))
	if err != nil {
		s.logger.Warn("semantic leg unavailable, falling back to lexical only",
			"query", query, "err", err)
		return nil
	}
	if len(embedding) == 0 {
		return nil
	}

	matches, err := s.bookmarks.FindSimilar(ctx, embedding, filters, minSimilarity, legDepth)
	if err != nil {
		s.logger.Warn("semantic leg query failed", "err", err)
		return nil
	}
	return matches
}

// lexicalLeg tokenizes the query and ranks bookmarks by weighted token
// matches.
func (s *Searcher) lexicalLeg(ctx context.Context, query string, filters storage.Filters) ([]*core.SearchResult, error) {
	tokens := index.TokenizeQuery(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	matches, err := s.bookmarks.SearchLexical(ctx, tokens, filters, legDepth)
	if err != nil {
		s.logger.Error("lexical leg query failed", "err", err)
		return nil, err
	}
	return matches, nil
}
