package search

import (
	"context"
	"testing"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
	"github.com/poiesic/corpora/storage/badger"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// seedStructured loads a small structured corpus in which "gold" appears
// in every table except the API endpoints.
func seedStructured(t *testing.T, store storage.Store) {
	t.Helper()
	err := store.Update(context.Background(), func(tx storage.Tx) error {
		plans := []*core.Plan{
			{Name: "starter", UsersLimit: intPtr(3), APICallsLimit: intPtr(10000), DashboardsLimit: intPtr(5), Entitlements: []string{"dashboards"}},
			{Name: "gold", MonthlyPrice: floatPtr(99.5), UsersLimit: intPtr(25), Entitlements: []string{"dashboards", "sso"}},
		}
		for _, p := range plans {
			if err := tx.InsertPlan(p); err != nil {
				return err
			}
		}
		products := []*core.Product{
			{SKU: "AN-100", Name: "Analytics Core", ShortDesc: "Dashboards and reports", Category: "analytics"},
			{SKU: "SUP-GLD", Name: "Gold Support", ShortDesc: "Priority response"},
		}
		for _, p := range products {
			if err := tx.InsertProduct(p); err != nil {
				return err
			}
		}
		codes := []*core.ErrorCode{
			{Code: "E1001", Message: "Token expired", Fix: "Sign in again"},
			{Code: "E4290", Message: "Rate limit exceeded", Fix: "Upgrade to GOLD", Severity: "warn"},
		}
		for _, c := range codes {
			if err := tx.InsertErrorCode(c); err != nil {
				return err
			}
		}
		if err := tx.InsertAPIEndpoint(&core.APIEndpoint{
			Path:        "/v1/reports",
			Method:      "GET",
			Summary:     "List reports",
			Description: "Returns every report visible to the caller.",
			Extra:       map[string]any{"parameters": []any{"limit"}},
		}); err != nil {
			return err
		}
		return tx.InsertPolicy(&core.Policy{
			Name:    "refunds",
			Version: "2.1",
			Payload: map[string]any{"version": "2.1", "eligible_tiers": []any{"gold"}},
		})
	})
	require.NoError(t, err)
}

// seedChunks publishes one document per vector, each with a single chunk.
func seedChunks(t *testing.T, store storage.Store, docs map[string][]float32) {
	t.Helper()
	ctx := context.Background()
	gen, err := store.NewGeneration(ctx)
	require.NoError(t, err)

	err = store.Update(ctx, func(tx storage.Tx) error {
		for docID, vector := range docs {
			doc := &core.Document{DocID: docID, DocType: "kb", ProductScope: []string{"analytics"}}
			if err := tx.CreateDocument(gen, doc); err != nil {
				return err
			}
			chunk := &core.ChunkRecord{DocumentID: doc.Id, Content: "content of " + docID, Vector: vector}
			if err := tx.InsertChunk(gen, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Publish(ctx, gen))
}
