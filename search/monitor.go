package search

import "github.com/poiesic/corpora/core"

// SearchMonitor provides hooks to observe hybrid searches.
// The After hooks run on the retrieval goroutines and may be called
// concurrently; Finish is only called for successful searches.
type SearchMonitor interface {
	Start(query string)
	AfterStructuredSearch(hits []core.StructuredHit)
	AfterVectorSearch(hits []core.VectorHit)
	Failed(err error)
	Finish(result *core.HybridContext)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterStructuredSearch(_ []core.StructuredHit) {}
func (n *noopMonitor) AfterVectorSearch(_ []core.VectorHit)         {}
func (n *noopMonitor) Failed(_ error)                               {}
func (n *noopMonitor) Finish(_ *core.HybridContext)                 {}
