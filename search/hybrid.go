package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/corpora/core"
	"golang.org/x/sync/errgroup"
)

// HybridRetriever runs structured and vector retrieval side by side.
type HybridRetriever struct {
	structured StructuredSearcher
	vector     VectorSearcher
	monitor    SearchMonitor
	logger     *slog.Logger
}

// NewHybridRetriever creates a hybrid retriever over the two searchers.
// Honors WithLogger and WithMonitor.
func NewHybridRetriever(structured StructuredSearcher, vector VectorSearcher, opts ...Option) (*HybridRetriever, error) {
	if structured == nil || vector == nil {
		return nil, ErrRetrieverRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &HybridRetriever{
		structured: structured,
		vector:     vector,
		monitor:    o.monitor,
		logger:     o.logger.With("component", "hybrid-retriever"),
	}, nil
}

// Search returns both hit lists for query. The lists are neither merged nor
// re-ranked. If either retrieval fails the whole search fails; there is no
// partial result.
func (h *HybridRetriever) Search(ctx context.Context, query string) (*core.HybridContext, error) {
	return h.SearchWithMonitor(ctx, query, h.monitor)
}

// SearchWithMonitor is Search with a per-call monitor.
func (h *HybridRetriever) SearchWithMonitor(ctx context.Context, query string, monitor SearchMonitor) (*core.HybridContext, error) {
	if _, err := newPattern(query); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	var structuredHits []core.StructuredHit
	var vectorHits []core.VectorHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := h.structured.Search(gctx, query)
		if err != nil {
			return err
		}
		monitor.AfterStructuredSearch(hits)
		structuredHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := h.vector.Search(gctx, query)
		if err != nil {
			return err
		}
		monitor.AfterVectorSearch(hits)
		vectorHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("hybrid search failed", "err", err)
		monitor.Failed(err)
		return nil, err
	}

	if structuredHits == nil {
		structuredHits = []core.StructuredHit{}
	}
	if vectorHits == nil {
		vectorHits = []core.VectorHit{}
	}
	result := &core.HybridContext{
		Query:          query,
		StructuredHits: structuredHits,
		VectorHits:     vectorHits,
	}
	h.logger.Debug("hybrid search complete", "structured", len(structuredHits), "vector", len(vectorHits))
	monitor.Finish(result)
	return result, nil
}
