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


package storage

import (
	"context"

	"github.com/poiesic/corpora/core"
)

// Store is the transactional persistence boundary of the engine.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// EnsureSchema prepares the store for use. It is idempotent.
	EnsureSchema(ctx context.Context) error

	// Update runs fn in a read-write transaction.
	// If fn returns nil the transaction is committed, otherwise it is discarded.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx ReadTx) error) error

	// NewGeneration reserves a staging generation for documents and chunks.
	// Rows written to a generation stay invisible to readers until it is published.
	NewGeneration(ctx context.Context) (core.ID, error)

	// Publish atomically makes gen the active generation and prunes all others.
	Publish(ctx context.Context, gen core.ID) error

	// Discard removes every row of an unpublished generation.
	Discard(ctx context.Context, gen core.ID) error

	// Close closes the store and releases resources.
	Close() error
}

// ReadTx is the read side of a transaction.
// Document and chunk reads only see the active generation.
type ReadTx interface {
	// ScanTable calls fn for every row of a structured table in insertion
	// order. Returning ErrStopScan from fn ends the scan without error.
	ScanTable(table core.Table, fn func(core.Payload) error) error

	// CountRows returns the number of rows in a table.
	CountRows(table core.Table) (int, error)

	// ActiveGeneration returns the published generation, or 0 if none.
	ActiveGeneration() (core.ID, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(id core.ID) (*core.Document, error)

	// GetDocumentByDocID retrieves a document by its stable doc_id.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocumentByDocID(docID string) (*core.Document, error)

	// ListChunks returns the chunks of a document ordered by chunk index.
	ListChunks(documentID core.ID) ([]*core.ChunkRecord, error)

	// NearestChunks returns up to k chunks ordered by ascending cosine
	// distance to vector, joined to their documents. Chunks without a
	// usable vector sort last with a nil distance.
	NearestChunks(vector []float32, k int) ([]*ChunkMatch, error)
}

// Tx is a read-write transaction.
type Tx interface {
	ReadTx

	// Clear deletes every row in core.ClearOrder. Documents and chunks are
	// detached from readers immediately and pruned after commit.
	Clear() error

	// InsertPlan adds a plan. Returns ErrDuplicateKey if the name exists.
	InsertPlan(plan *core.Plan) error
	// InsertProduct adds a product. Returns ErrDuplicateKey if the SKU exists.
	InsertProduct(product *core.Product) error
	// InsertErrorCode adds an error code. Returns ErrDuplicateKey if the code exists.
	InsertErrorCode(ec *core.ErrorCode) error
	InsertPolicy(policy *core.Policy) error
	InsertAPIEndpoint(endpoint *core.APIEndpoint) error

	// CreateDocument adds a document to a staging generation and assigns its ID.
	// Returns ErrDuplicateKey if the doc_id already exists in that generation.
	CreateDocument(gen core.ID, doc *core.Document) error

	// InsertChunk adds a chunk to a staging generation and assigns its ID.
	// Returns ErrNotFound if the owning document is not in that generation.
	InsertChunk(gen core.ID, chunk *core.ChunkRecord) error

	// DeleteDocument removes an active document and all of its chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(id core.ID) error
}

// ChunkMatch is a similarity search result.
type ChunkMatch struct {
	Chunk    *core.ChunkRecord
	Document *core.Document
	// Distance is the cosine distance to the query, or nil when unavailable.
	Distance *float64
}
