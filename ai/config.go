// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/corpora/core"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1", or a local OpenAI-compatible server
	EmbeddingHost string

	// APIKey is the credential sent to the embedding service.
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Default: "text-embedding-3-large"
	EmbeddingModel string

	// Dimensions is the expected embedding length. Zero disables the check.
	// Default: 3072
	Dimensions int

	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the rate at once.
	// Default: 1
	Burst int

	// BreakerFailures is the number of consecutive failures that opens
	// the circuit breaker.
	// Default: 5
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing again.
	// Default: 30s
	BreakerTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithAPIKey sets the API credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithDimensions sets the expected embedding length.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithRateLimit caps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithBreaker sets the circuit breaker trip threshold and open timeout.
func WithBreaker(failures uint32, timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.BreakerFailures = failures
		c.BreakerTimeout = timeout
	}
}

// DefaultConfig returns a Config with defaults for the OpenAI embeddings API.
// The API key is left empty and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:   "https://api.openai.com/v1",
		EmbeddingModel:  "text-embedding-3-large",
		Dimensions:      3072,
		Burst:           1,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithDimensions(1536),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// Every failure wraps core.ErrConfiguration.
func (c *Config) Validate() error {
	c.Normalize()

	if c.APIKey == "" {
		return fmt.Errorf("%w: ai config: APIKey is required", core.ErrConfiguration)
	}
	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: ai config: EmbeddingHost is required", core.ErrConfiguration)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: ai config: EmbeddingModel is required", core.ErrConfiguration)
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("%w: ai config: Dimensions must not be negative", core.ErrConfiguration)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: ai config: RequestsPerSecond must not be negative", core.ErrConfiguration)
	}
	return nil
}
