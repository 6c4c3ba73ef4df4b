package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, backend, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func countRows(t *testing.T, store storage.Store, table core.Table) int {
	t.Helper()
	var n int
	err := store.View(context.Background(), func(tx storage.ReadTx) error {
		var err error
		n, err = tx.CountRows(table)
		return err
	})
	require.NoError(t, err)
	return n
}

// stageDocument writes a document with the given chunk vectors into gen.
func stageDocument(t *testing.T, store storage.Store, gen core.ID, docID string, vectors ...[]float32) *core.Document {
	t.Helper()
	doc := &core.Document{DocID: docID, Title: docID}
	err := store.Update(context.Background(), func(tx storage.Tx) error {
		if err := tx.CreateDocument(gen, doc); err != nil {
			return err
		}
		for i, v := range vectors {
			chunk := &core.ChunkRecord{DocumentID: doc.Id, Index: i, Content: docID, Vector: v}
			if err := tx.InsertChunk(gen, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return doc
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestStructuredInsertAndScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"starter", "gold", "enterprise"}
	err := store.Update(ctx, func(tx storage.Tx) error {
		for _, n := range names {
			if err := tx.InsertPlan(&core.Plan{Name: n}); err != nil {
				return err
			}
		}
		return tx.InsertProduct(&core.Product{SKU: "AN-100", Name: "Analytics"})
	})
	require.NoError(t, err)

	var got []string
	err = store.View(ctx, func(tx storage.ReadTx) error {
		return tx.ScanTable(core.TablePlans, func(p core.Payload) error {
			plan := p.(*core.Plan)
			assert.NotZero(t, plan.Id)
			got = append(got, plan.Name)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, names, got)
	assert.Equal(t, 1, countRows(t, store, core.TableProducts))
}

func TestScanTable_Stop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		for _, c := range []string{"E1", "E2", "E3"} {
			if err := tx.InsertErrorCode(&core.ErrorCode{Code: c}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	seen := 0
	err = store.View(ctx, func(tx storage.ReadTx) error {
		return tx.ScanTable(core.TableErrorCodes, func(core.Payload) error {
			seen++
			if seen == 2 {
				return storage.ErrStopScan
			}
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	err = store.View(ctx, func(tx storage.ReadTx) error {
		return tx.ScanTable(core.TableDocuments, func(core.Payload) error { return nil })
	})
	assert.ErrorIs(t, err, core.ErrUnknownTable)
}

func TestInsert_DuplicateNaturalKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.InsertProduct(&core.Product{SKU: "AN-100", Name: "a"}); err != nil {
			return err
		}
		return tx.InsertProduct(&core.Product{SKU: "AN-100", Name: "b"})
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The failed transaction left nothing behind.
	assert.Zero(t, countRows(t, store, core.TableProducts))

	// Policies have no natural key.
	err = store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.InsertPolicy(&core.Policy{Name: "refunds"}); err != nil {
			return err
		}
		return tx.InsertPolicy(&core.Policy{Name: "refunds"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, store, core.TablePolicies))
}

func TestInsert_Validates(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(context.Background(), func(tx storage.Tx) error {
		return tx.InsertAPIEndpoint(&core.APIEndpoint{Path: "/v1/x"})
	})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func TestUpdate_PanicReleasesTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.Update(ctx, func(tx storage.Tx) error {
			_ = tx.InsertPlan(&core.Plan{Name: "gold"})
			panic("boom")
		})
	})
	assert.Zero(t, countRows(t, store, core.TablePlans))

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertPlan(&core.Plan{Name: "gold"})
	}))
}

func TestGenerations_StagedRowsInvisibleUntilPublished(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "guide", []float32{1, 0}, []float32{0, 1})

	assert.Zero(t, countRows(t, store, core.TableDocuments))
	assert.Zero(t, countRows(t, store, core.TableChunks))

	require.NoError(t, store.Publish(ctx, gen))
	assert.Equal(t, 1, countRows(t, store, core.TableDocuments))
	assert.Equal(t, 2, countRows(t, store, core.TableChunks))

	err = store.View(ctx, func(tx storage.ReadTx) error {
		doc, err := tx.GetDocumentByDocID("guide")
		if err != nil {
			return err
		}
		chunks, err := tx.ListChunks(doc.Id)
		if err != nil {
			return err
		}
		require.Len(t, chunks, 2)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, []float32{0, 1}, chunks[1].Vector)
		return nil
	})
	require.NoError(t, err)
}

func TestGenerations_PublishReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, first, "old", []float32{1})
	require.NoError(t, store.Publish(ctx, first))

	second, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, second, "new", []float32{1})
	require.NoError(t, store.Publish(ctx, second))

	err = store.View(ctx, func(tx storage.ReadTx) error {
		_, err := tx.GetDocumentByDocID("old")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.GetDocumentByDocID("new")
		return err
	})
	require.NoError(t, err)

	// The first generation was pruned and can no longer be published.
	assert.ErrorIs(t, store.Publish(ctx, first), storage.ErrNotFound)
}

func TestGenerations_Discard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "draft", []float32{1})
	require.NoError(t, store.Discard(ctx, gen))
	assert.ErrorIs(t, store.Publish(ctx, gen), storage.ErrNotFound)

	live, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Publish(ctx, live))
	assert.Error(t, store.Discard(ctx, live))
}

func TestCreateDocument_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		return tx.CreateDocument(99, &core.Document{DocID: "x"})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "x")
	err = store.Update(ctx, func(tx storage.Tx) error {
		return tx.CreateDocument(gen, &core.Document{DocID: "x"})
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Update(ctx, func(tx storage.Tx) error {
		return tx.CreateDocument(gen, &core.Document{})
	})
	assert.ErrorIs(t, err, core.ErrMissingField)

	err = store.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertChunk(gen, &core.ChunkRecord{DocumentID: 12345, Content: "orphan"})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		return errors.Join(
			tx.InsertPlan(&core.Plan{Name: "gold"}),
			tx.InsertProduct(&core.Product{SKU: "AN-100", Name: "a"}),
			tx.InsertErrorCode(&core.ErrorCode{Code: "E1"}),
			tx.InsertPolicy(&core.Policy{Name: "refunds"}),
			tx.InsertAPIEndpoint(&core.APIEndpoint{Path: "/x", Method: "GET"}),
		)
	}))
	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "guide", []float32{1})
	require.NoError(t, store.Publish(ctx, gen))

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error { return tx.Clear() }))
	for _, table := range core.ClearOrder {
		assert.Zero(t, countRows(t, store, table), table)
	}

	// Natural keys are free again.
	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertProduct(&core.Product{SKU: "AN-100", Name: "a"})
	}))
}

func TestDeleteDocument_Cascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	doomed := stageDocument(t, store, gen, "doomed", []float32{1}, []float32{2})
	stageDocument(t, store, gen, "kept", []float32{3})
	require.NoError(t, store.Publish(ctx, gen))

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteDocument(doomed.Id)
	}))
	assert.Equal(t, 1, countRows(t, store, core.TableDocuments))
	assert.Equal(t, 1, countRows(t, store, core.TableChunks))

	err = store.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteDocument(doomed.Id)
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNearestChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "a", []float32{0, 1}, []float32{1, 0})
	stageDocument(t, store, gen, "b", []float32{1, 1}, nil, []float32{0, 0})
	require.NoError(t, store.Publish(ctx, gen))

	var matches []*storage.ChunkMatch
	err = store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		matches, err = tx.NearestChunks([]float32{1, 0}, 10)
		return err
	})
	require.NoError(t, err)
	require.Len(t, matches, 5)

	// Exact match first, then the diagonal, then the orthogonal vector.
	assert.Equal(t, "a", matches[0].Document.DocID)
	assert.Equal(t, 1, matches[0].Chunk.Index)
	require.NotNil(t, matches[0].Distance)
	assert.InDelta(t, 0, *matches[0].Distance, 1e-9)
	assert.Equal(t, "b", matches[1].Document.DocID)
	assert.InDelta(t, 1-1/1.4142135623730951, *matches[1].Distance, 1e-6)
	assert.InDelta(t, 1, *matches[2].Distance, 1e-9)

	// Missing and zero vectors have no distance and sort last by chunk ID.
	assert.Nil(t, matches[3].Distance)
	assert.Nil(t, matches[4].Distance)
	assert.Less(t, matches[3].Chunk.Id, matches[4].Chunk.Id)

	err = store.View(ctx, func(tx storage.ReadTx) error {
		top, err := tx.NearestChunks([]float32{1, 0}, 2)
		assert.Len(t, top, 2)
		return err
	})
	require.NoError(t, err)
}

func TestNearestChunks_Empty(t *testing.T) {
	store := newTestStore(t)
	err := store.View(context.Background(), func(tx storage.ReadTx) error {
		matches, err := tx.NearestChunks([]float32{1, 0}, 6)
		assert.Empty(t, matches)
		return err
	})
	require.NoError(t, err)
}

func TestNearestChunks_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)
	stageDocument(t, store, gen, "a", []float32{1, 0, 0})
	require.NoError(t, store.Publish(ctx, gen))

	err = store.View(ctx, func(tx storage.ReadTx) error {
		_, err := tx.NearestChunks([]float32{1, 0}, 6)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestClosedStore(t *testing.T) {
	store, backend, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, backend.Close())

	err = store.View(context.Background(), func(storage.ReadTx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
