package badger

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// transaction implements storage.Tx on a single BadgerDB transaction.
type transaction struct {
	store   *Store
	tx      *badger.Txn
	cleared bool
}

var _ storage.Tx = (*transaction)(nil)

// ScanTable iterates a structured table in insertion order.
func (t *transaction) ScanTable(table core.Table, fn func(core.Payload) error) error {
	if !table.IsStructured() {
		return fmt.Errorf("%w: %s", core.ErrUnknownTable, table)
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeTablePrefix(table)
	iter := t.tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var p core.Payload
		err := iter.Item().Value(func(val []byte) error {
			var err error
			p, err = storage.UnmarshalPayload(table, val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			if errors.Is(err, storage.ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}

// CountRows counts a table. Documents and chunks are counted in the active generation.
func (t *transaction) CountRows(table core.Table) (int, error) {
	if table.IsStructured() {
		return t.countPrefix(makeTablePrefix(table)), nil
	}
	var kind string
	switch table {
	case core.TableDocuments:
		kind = documentPrefix
	case core.TableChunks:
		kind = chunkPrefix
	default:
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownTable, table)
	}
	gen, err := t.ActiveGeneration()
	if err != nil || gen == 0 {
		return 0, err
	}
	return t.countPrefix(makeGenPrefix(kind, gen)), nil
}

func (t *transaction) countPrefix(prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := t.tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count
}

// collectKeys returns copies of every key under prefix.
func (t *transaction) collectKeys(prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := t.tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}

func (t *transaction) deleteKeys(keys [][]byte) error {
	for _, key := range keys {
		if err := t.tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// ActiveGeneration returns the published generation.
func (t *transaction) ActiveGeneration() (core.ID, error) {
	return activeGeneration(t.tx)
}

// GetDocument retrieves an active document by ID.
func (t *transaction) GetDocument(id core.ID) (*core.Document, error) {
	gen, err := t.ActiveGeneration()
	if err != nil {
		return nil, err
	}
	return t.getDocument(gen, id)
}

// GetDocumentByDocID retrieves an active document by doc_id.
func (t *transaction) GetDocumentByDocID(docID string) (*core.Document, error) {
	gen, err := t.ActiveGeneration()
	if err != nil {
		return nil, err
	}
	item, err := t.tx.Get(makeDocIDKey(gen, docID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: document %q", storage.ErrNotFound, docID)
	}
	if err != nil {
		return nil, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t.getDocument(gen, id)
}

func (t *transaction) getDocument(gen, id core.ID) (*core.Document, error) {
	item, err := t.tx.Get(makeDocumentKey(gen, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: document %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// getChunk reads a chunk and its vector, if any.
func (t *transaction) getChunk(gen, id core.ID) (*core.ChunkRecord, error) {
	item, err := t.tx.Get(makeChunkKey(gen, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: chunk %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var chunk *core.ChunkRecord
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	item, err = t.tx.Get(makeVectorKey(gen, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chunk, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		var err error
		chunk.Vector, err = storage.UnmarshalVector(val)
		return err
	})
	return chunk, err
}

// ListChunks returns an active document's chunks ordered by index.
func (t *transaction) ListChunks(documentID core.ID) ([]*core.ChunkRecord, error) {
	gen, err := t.ActiveGeneration()
	if err != nil || gen == 0 {
		return nil, err
	}
	keys := t.collectKeys(makePartialDocChunkKey(gen, documentID))
	chunks := make([]*core.ChunkRecord, 0, len(keys))
	for _, key := range keys {
		chunk, err := t.getChunk(gen, idSuffix(key))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	slices.SortFunc(chunks, func(a, b *core.ChunkRecord) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return chunks, nil
}

// Clear deletes every structured row and detaches the active generation.
func (t *transaction) Clear() error {
	for _, table := range core.ClearOrder {
		switch {
		case table.IsStructured():
			if err := t.deleteKeys(t.collectKeys(makeTablePrefix(table))); err != nil {
				return err
			}
			if err := t.deleteKeys(t.collectKeys(makeUniquePrefix(table))); err != nil {
				return err
			}
		case !t.cleared:
			if err := t.tx.Set([]byte(activeGenKey), storage.MarshalID(0)); err != nil {
				return err
			}
			t.cleared = true
		}
	}
	return nil
}

func (t *transaction) InsertPlan(plan *core.Plan) error {
	return t.insertRow(plan, func(id core.ID) { plan.Id = id })
}

func (t *transaction) InsertProduct(product *core.Product) error {
	return t.insertRow(product, func(id core.ID) { product.Id = id })
}

func (t *transaction) InsertErrorCode(ec *core.ErrorCode) error {
	return t.insertRow(ec, func(id core.ID) { ec.Id = id })
}

func (t *transaction) InsertPolicy(policy *core.Policy) error {
	return t.insertRow(policy, func(id core.ID) { policy.Id = id })
}

func (t *transaction) InsertAPIEndpoint(endpoint *core.APIEndpoint) error {
	return t.insertRow(endpoint, func(id core.ID) { endpoint.Id = id })
}

// insertRow validates p, enforces its natural key and stores it under a new ID.
func (t *transaction) insertRow(p core.Payload, setID func(core.ID)) error {
	if err := core.ValidatePayload(p); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}
	table := p.Table()

	var uniqueKey []byte
	if nk := p.NaturalKey(); nk != "" {
		uniqueKey = makeUniqueKey(table, nk)
		_, err := t.tx.Get(uniqueKey)
		if err == nil {
			return fmt.Errorf("%w: %s %q", storage.ErrDuplicateKey, table, nk)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
	}

	id, err := nextID(t.store.rowSeq)
	if err != nil {
		return err
	}
	setID(id)

	data, err := storage.MarshalPayload(p)
	if err != nil {
		return err
	}
	if err := t.tx.Set(makeRowKey(table, id), data); err != nil {
		return err
	}
	if uniqueKey != nil {
		return t.tx.Set(uniqueKey, storage.MarshalID(id))
	}
	return nil
}

// CreateDocument stores doc in a staging generation.
func (t *transaction) CreateDocument(gen core.ID, doc *core.Document) error {
	if doc.DocID == "" {
		return fmt.Errorf("document %w: doc_id", core.ErrMissingField)
	}
	if err := requireGeneration(t.tx, gen); err != nil {
		return err
	}
	docIDKey := makeDocIDKey(gen, doc.DocID)
	_, err := t.tx.Get(docIDKey)
	if err == nil {
		return fmt.Errorf("%w: document %q", storage.ErrDuplicateKey, doc.DocID)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	id, err := nextID(t.store.docSeq)
	if err != nil {
		return err
	}
	doc.Id = id

	data, err := storage.MarshalDocument(doc)
	if err != nil {
		return err
	}
	if err := t.tx.Set(makeDocumentKey(gen, id), data); err != nil {
		return err
	}
	return t.tx.Set(docIDKey, storage.MarshalID(id))
}

// InsertChunk stores chunk and its vector in a staging generation.
func (t *transaction) InsertChunk(gen core.ID, chunk *core.ChunkRecord) error {
	_, err := t.tx.Get(makeDocumentKey(gen, chunk.DocumentID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: document %d in generation %d", storage.ErrNotFound, chunk.DocumentID, gen)
	}
	if err != nil {
		return err
	}

	id, err := nextID(t.store.chunkSeq)
	if err != nil {
		return err
	}
	chunk.Id = id

	data, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	if err := t.tx.Set(makeChunkKey(gen, id), data); err != nil {
		return err
	}
	if len(chunk.Vector) > 0 {
		if err := t.tx.Set(makeVectorKey(gen, id), storage.MarshalVector(chunk.Vector)); err != nil {
			return err
		}
	}
	return t.tx.Set(makeDocChunkKey(gen, chunk.DocumentID, id), nil)
}

// DeleteDocument removes an active document and cascades to its chunks.
func (t *transaction) DeleteDocument(id core.ID) error {
	gen, err := t.ActiveGeneration()
	if err != nil {
		return err
	}
	doc, err := t.getDocument(gen, id)
	if err != nil {
		return err
	}

	for _, key := range t.collectKeys(makePartialDocChunkKey(gen, id)) {
		chunkID := idSuffix(key)
		for _, k := range [][]byte{makeChunkKey(gen, chunkID), makeVectorKey(gen, chunkID), key} {
			if err := t.tx.Delete(k); err != nil {
				return err
			}
		}
	}
	if err := t.tx.Delete(makeDocumentKey(gen, id)); err != nil {
		return err
	}
	return t.tx.Delete(makeDocIDKey(gen, doc.DocID))
}
