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


package search

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrieverRequired is returned when the hybrid retriever is missing
	// one of its halves.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrEmptyQuery is returned when the query has no non-space characters.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidLimit is returned when a result limit is <= 0.
	ErrInvalidLimit = errors.New("limit must be greater than 0")
)
