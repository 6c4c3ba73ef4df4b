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


// Package storage provides the storage abstraction layer for corpora.
//
// This package defines the Store interface that decouples the ingestion
// pipeline and retrievers from the storage engine. The BadgerDB
// implementation lives in storage/badger.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface:
//
//	store, err := badger.NewStore(backend)  // returns storage.Store
//
// Tests that need engine-level access use the concrete helpers in the
// implementation package.
//
// # Tables
//
// The store holds seven tables. Five are independent structured tables
// (plans, products, error_codes, api_endpoints, policies). The remaining
// two form a parent/child pair: documents own document_chunks, and
// deleting a document deletes its chunks.
//
// # Generations
//
// Documents and chunks are written in many small transactions but must
// appear all at once. They are therefore written into a staging
// generation reserved with NewGeneration. Readers only ever see the active
// generation. Publish swaps the active generation in a single transaction,
// and Discard throws a failed generation away. Tx.Clear detaches the
// active generation, so a rebuild that fails after clearing leaves the
// unstructured tables empty rather than half written.
//
// # Transactions
//
// Every logical unit of work owns its own transaction through Update or
// View. The transaction is released on every exit path, including errors
// and panics propagating out of fn.
//
// # Thread Safety
//
// Store implementations must be thread-safe. Transactions must not be
// shared across goroutines.
package storage
