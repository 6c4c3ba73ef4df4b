// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service down")
//	}
//
//	// Check call counts and recorded batches
//	count := embedder.CallCount()
//	batches := embedder.Batches()
//
// # Default Behavior
//
// MockEmbedder returns deterministic unit vectors derived from an FNV hash
// of the text, so equal texts always embed identically and a query equal to
// a chunk's content has cosine distance 0 to it.
package mock
