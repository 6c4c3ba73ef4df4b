package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpora/ai"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Calls pass through a rate limiter and a circuit breaker.
type Embedder struct {
	embedder   embeddings.Embedder
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	dimensions int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return wrapEmbedder(embedder, config), nil
}

// wrapEmbedder guards a langchaingo embedder with the limits in config.
func wrapEmbedder(embedder embeddings.Embedder, config *ai.Config) *Embedder {
	logger := slog.Default().With("component", "openai-embedder")

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	failures := config.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "embeddings",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Embedder{
		embedder:   embedder,
		breaker:    breaker,
		limiter:    rate.NewLimiter(limit, max(config.Burst, 1)),
		dimensions: config.Dimensions,
		logger:     logger,
	}
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a query embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	result, err := e.call(ctx, func() (any, error) {
		return e.embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	vector := result.([]float32)
	if err := e.checkDimensions(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates document embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	result, err := e.call(ctx, func() (any, error) {
		return e.embedder.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	vectors := result.([][]float32)
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ai.ErrResultCount, len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := e.checkDimensions(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// call waits for the rate limiter and runs fn through the circuit breaker.
func (e *Embedder) call(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := e.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	return result, err
}

func (e *Embedder) checkDimensions(v []float32) error {
	if e.dimensions > 0 && len(v) != e.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ai.ErrUnexpectedDimensions, len(v), e.dimensions)
	}
	return nil
}
