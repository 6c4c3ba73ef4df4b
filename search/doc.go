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


// Package search answers questions against an ingested corpus.
//
// Three retrievers are provided:
//   - StructuredRetriever runs a case-insensitive substring match over a
//     fixed set of fields in each structured table
//   - VectorRetriever embeds the query and returns the nearest chunks by
//     cosine distance, joined to their documents
//   - HybridRetriever runs both concurrently and returns the two lists side
//     by side in a core.HybridContext
//
// Results are never merged, deduplicated or re-ranked across the two lists.
// Structured hits are concatenated in table order (plans, products, error
// codes, API endpoints, policies) and truncated to a global limit, so later
// tables can be starved by earlier ones.
//
// Every retrieval opens its own read transaction. Retrievers are safe for
// concurrent use.
package search
