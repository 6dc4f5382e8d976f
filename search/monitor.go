package search

import "github.com/stashd/stash/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticLeg(results []*core.SearchResult)
	AfterLexicalLeg(results []*core.SearchResult)
	AfterFusion(fused []*core.SearchResult)
	Finish(page *core.Page)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterSemanticLeg(_ []*core.SearchResult) {}
func (n *noopMonitor) AfterLexicalLeg(_ []*core.SearchResult)  {}
func (n *noopMonitor) AfterFusion(_ []*core.SearchResult)      {}
func (n *noopMonitor) Finish(_ *core.Page)                     {}
