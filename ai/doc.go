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


// Package ai provides abstractions for AI services used in corpora.
//
// This package defines the interfaces for turning text into vector
// embeddings. It follows the dependency inversion principle: the ingestion
// pipeline and the vector retriever depend on ai.Embedder, never on a
// concrete client.
//
// # Design Principles
//
// The package is designed around two key interfaces:
//
//   - Embedder: Generates vector embeddings from text, one query at a time
//     or in document batches
//   - AIProvider: Owns an Embedder and its lifecycle
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection.
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	count := mockEmbed.CallCount()       // test assertion
//
// # Configuration Errors
//
// A missing credential is not a transient failure. Config.Validate wraps
// core.ErrConfiguration so callers can fail fast instead of retrying.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "How do refunds work?")
package ai
