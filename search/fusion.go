package search

import (
	"slices"

	"github.com/stashd/stash/core"
)

// rrfK is the reciprocal rank fusion constant. The standard value of 60
// keeps single-leg top hits from dominating items that rank moderately in
// both legs.
const rrfK = 60

// fuse merges ranked result lists with reciprocal rank fusion: each item
// scores the sum of 1/(k+rank+1) over the legs it appears in, using its
// raw rank within each leg. The fused list is sorted by score descending,
// with bookmark ID as a deterministic tie-break.
func fuse(legs ...[]*core.SearchResult) []*core.SearchResult {
	fused := make(map[core.ID]*core.SearchResult)

	for _, leg := range legs {
		for rank, result := range leg {
			contribution := 1.0 / float64(rrfK+rank+1)
			if existing, ok := fused[result.Bookmark.Id]; ok {
				existing.Score += contribution
				continue
			}
			fused[result.Bookmark.Id] = &core.SearchResult{
				Bookmark: result.Bookmark,
				Score:    contribution,
			}
		}
	}

	results := make([]*core.SearchResult, 0, len(fused))
	for _, result := range fused {
		results = append(results, result)
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Bookmark.Id < b.Bookmark.Id {
			return -1
		}
		if a.Bookmark.Id > b.Bookmark.Id {
			return 1
		}
		return 0
	})

	return results
}

// paginate slices a fused result list. Offsets past the end yield an empty
// page, never an error.
func paginate(results []*core.SearchResult, limit, offset int) []*core.SearchResult {
	if offset >= len(results) {
		return []*core.SearchResult{}
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
