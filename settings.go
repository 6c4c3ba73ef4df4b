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


package corpora

import (
	"fmt"
	"time"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
	"github.com/poiesic/corpora/ingestion"
	"github.com/poiesic/corpora/search"
)

// Settings holds the tunables of an Engine.
type Settings struct {
	// CorpusRoot is the directory holding the corpus.
	CorpusRoot string

	// DatabasePath is the directory of the Badger database.
	DatabasePath string

	// ChunkSize and ChunkOverlap size the token windows of documents.
	ChunkSize    int
	ChunkOverlap int

	// BatchSize is the number of chunks per embedding call.
	BatchSize int

	// StructuredPerTableLimit caps the structured hits from each table and
	// StructuredLimit the concatenated list.
	StructuredPerTableLimit int
	StructuredLimit         int

	// VectorLimit is the number of chunks returned by vector search.
	VectorLimit int

	// EmbeddingRetries bounds the attempts per embedding batch.
	EmbeddingRetries int

	// RetryBaseDelay is the delay before the first embedding retry.
	RetryBaseDelay time.Duration

	// EmbeddingTimeout bounds a single embedding call.
	EmbeddingTimeout time.Duration

	// StrictDocuments aborts ingestion on the first unreadable document.
	StrictDocuments bool

	// AI configures the embedding provider.
	AI *ai.Config
}

// DefaultSettings returns the default settings. CorpusRoot, DatabasePath
// and the API key are left for the caller.
func DefaultSettings() Settings {
	return Settings{
		CorpusRoot:              "corpus",
		DatabasePath:            "corpora.db",
		ChunkSize:               document.DefaultChunkSize,
		ChunkOverlap:            document.DefaultChunkOverlap,
		BatchSize:               ingestion.DefaultBatchSize,
		StructuredPerTableLimit: search.DefaultStructuredLimit,
		StructuredLimit:         search.DefaultStructuredLimit,
		VectorLimit:             search.DefaultVectorLimit,
		EmbeddingRetries:        ingestion.DefaultMaxAttempts,
		RetryBaseDelay:          ingestion.DefaultRetryDelay,
		EmbeddingTimeout:        ingestion.DefaultEmbedTimeout,
		AI:                      ai.DefaultConfig(),
	}
}

// Validate checks the settings that do not depend on the environment.
// Credentials are checked when the provider is created. Every failure
// wraps core.ErrConfiguration.
func (s Settings) Validate() error {
	if _, err := document.Windows(0, s.ChunkSize, s.ChunkOverlap); err != nil {
		return fmt.Errorf("%w: settings: %w", core.ErrConfiguration, err)
	}
	checks := []struct {
		name string
		ok   bool
	}{
		{"BatchSize must be greater than 0", s.BatchSize > 0},
		{"StructuredPerTableLimit must be greater than 0", s.StructuredPerTableLimit > 0},
		{"StructuredLimit must be greater than 0", s.StructuredLimit > 0},
		{"VectorLimit must be greater than 0", s.VectorLimit > 0},
		{"EmbeddingRetries must be greater than 0", s.EmbeddingRetries > 0},
		{"RetryBaseDelay must not be negative", s.RetryBaseDelay >= 0},
		{"EmbeddingTimeout must not be negative", s.EmbeddingTimeout >= 0},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: settings: %s", core.ErrConfiguration, c.name)
		}
	}
	return nil
}

func (s Settings) pipelineOptions() []ingestion.Option {
	return []ingestion.Option{
		ingestion.WithChunking(s.ChunkSize, s.ChunkOverlap),
		ingestion.WithBatchSize(s.BatchSize),
		ingestion.WithRetry(s.EmbeddingRetries, s.RetryBaseDelay),
		ingestion.WithEmbedTimeout(s.EmbeddingTimeout),
		ingestion.WithStrictDocuments(s.StrictDocuments),
	}
}

func (s Settings) searchOptions() []search.Option {
	return []search.Option{
		search.WithPerTableLimit(s.StructuredPerTableLimit),
		search.WithGlobalLimit(s.StructuredLimit),
		search.WithVectorLimit(s.VectorLimit),
	}
}
