package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
	"github.com/poiesic/corpora/storage"
)

// VectorSearcher finds chunks semantically close to a query.
type VectorSearcher interface {
	Search(ctx context.Context, query string) ([]core.VectorHit, error)
}

// VectorRetriever ranks chunks by cosine distance to the query embedding.
type VectorRetriever struct {
	store    storage.Store
	embedder ai.Embedder
	k        int
	logger   *slog.Logger
}

var _ VectorSearcher = (*VectorRetriever)(nil)

// NewVectorRetriever creates a vector retriever.
// Honors WithLogger and WithVectorLimit.
func NewVectorRetriever(store storage.Store, embedder ai.Embedder, opts ...Option) (*VectorRetriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &VectorRetriever{
		store:    store,
		embedder: embedder,
		k:        o.k,
		logger:   o.logger.With("component", "vector-retriever"),
	}, nil
}

// Search embeds the query once and returns up to k chunks, nearest first.
// Scope metadata is returned but not used for filtering.
func (r *VectorRetriever) Search(ctx context.Context, query string) ([]core.VectorHit, error) {
	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	var matches []*storage.ChunkMatch
	err = r.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		matches, err = tx.NearestChunks(embedding, r.k)
		return err
	})
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	hits := make([]core.VectorHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, vectorHit(m))
	}
	r.logger.Debug("vector search complete", "hits", len(hits))
	return hits, nil
}

func vectorHit(m *storage.ChunkMatch) core.VectorHit {
	score := 0.0
	if m.Distance != nil {
		score = 1 - *m.Distance
	}
	doc := m.Document
	return core.VectorHit{
		DocID:   doc.DocID,
		Score:   score,
		Content: m.Chunk.Content,
		Metadata: map[string]any{
			"doc_type":       doc.DocType,
			"audience":       doc.Audience,
			"product_scope":  doc.ProductScope,
			"region_scope":   doc.RegionScope,
			"version":        doc.Version,
			"effective_date": document.FormatDate(doc.EffectiveDate),
			"chunk_index":    m.Chunk.Index,
		},
	}
}
