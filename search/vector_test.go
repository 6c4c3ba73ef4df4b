package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/corpora/ai/mock"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryEmbedder(vector []float32) *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return e
}

func TestNewVectorRetriever(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()

	r, err := NewVectorRetriever(store, embedder)
	require.NoError(t, err)
	assert.Equal(t, DefaultVectorLimit, r.k)

	_, err = NewVectorRetriever(nil, embedder)
	assert.Equal(t, ErrStoreRequired, err)

	_, err = NewVectorRetriever(store, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	_, err = NewVectorRetriever(store, embedder, WithVectorLimit(0))
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestVectorRetriever_Search(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, map[string][]float32{
		"near": {1, 0, 0},
		"mid":  {1, 1, 0},
		"far":  {0, 1, 0},
		"none": nil,
	})
	embedder := queryEmbedder([]float32{1, 0, 0})
	r, err := NewVectorRetriever(store, embedder)
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "refund window")
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, 1, embedder.CallCount())

	assert.Equal(t, "near", hits[0].DocID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "content of near", hits[0].Content)
	assert.Equal(t, map[string]any{
		"doc_type":       "kb",
		"audience":       "",
		"product_scope":  []string{"analytics"},
		"region_scope":   []string(nil),
		"version":        "",
		"effective_date": nil,
		"chunk_index":    0,
	}, hits[0].Metadata)

	assert.Equal(t, "mid", hits[1].DocID)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)
	assert.Equal(t, "far", hits[2].DocID)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)

	// Chunks without a vector come last with a zero score.
	assert.Equal(t, "none", hits[3].DocID)
	assert.Equal(t, 0.0, hits[3].Score)
}

func TestVectorRetriever_Limit(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, map[string][]float32{
		"near": {1, 0, 0},
		"mid":  {1, 1, 0},
		"far":  {0, 1, 0},
	})
	r, err := NewVectorRetriever(store, queryEmbedder([]float32{1, 0, 0}), WithVectorLimit(2))
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].DocID)
	assert.Equal(t, "mid", hits[1].DocID)
}

func TestVectorRetriever_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	r, err := NewVectorRetriever(store, mock.NewMockEmbedder())
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestVectorRetriever_EmbeddingError(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	embedErr := errors.New("provider down")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, embedErr
	}
	r, err := NewVectorRetriever(store, embedder)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q")
	assert.ErrorIs(t, err, embedErr)
}

func TestVectorRetriever_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, map[string][]float32{"near": {1, 0, 0}})
	r, err := NewVectorRetriever(store, queryEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q")
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestVectorHit_NilDistance(t *testing.T) {
	hit := vectorHit(&storage.ChunkMatch{
		Chunk:    &core.ChunkRecord{Index: 3, Content: "c"},
		Document: &core.Document{DocID: "d"},
	})
	assert.Equal(t, 0.0, hit.Score)
	assert.Equal(t, 3, hit.Metadata["chunk_index"])
}
