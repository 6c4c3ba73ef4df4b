package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// schemaVersion is bumped whenever the key layout changes incompatibly.
const schemaVersion = "1"

// Store implements storage.Store for BadgerDB.
type Store struct {
	backend  *Backend
	logger   *slog.Logger
	rowSeq   *badger.Sequence
	docSeq   *badger.Sequence
	chunkSeq *badger.Sequence
	genSeq   *badger.Sequence
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger. A nil logger uses slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore creates a Store on an open backend.
// The caller closes the store before the backend.
func NewStore(backend *Backend, opts ...Option) (storage.Store, error) {
	return newStore(backend, opts...)
}

func newStore(backend *Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "store")

	seqs := []struct {
		name string
		dst  **badger.Sequence
	}{
		{rowIDSeq, &s.rowSeq},
		{documentIDSeq, &s.docSeq},
		{chunkIDSeq, &s.chunkSeq},
		{generationIDSeq, &s.genSeq},
	}
	for _, seq := range seqs {
		acquired, err := backend.GetSequence(seq.name)
		if err != nil {
			s.Close()
			return nil, err
		}
		*seq.dst = acquired
	}
	return s, nil
}

// Close releases the ID sequences.
func (s *Store) Close() error {
	var errs []error
	for _, seq := range []*badger.Sequence{s.rowSeq, s.docSeq, s.chunkSeq, s.genSeq} {
		if seq == nil {
			continue
		}
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) checkOpen(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// EnsureSchema records the schema version on first use and rejects
// stores written with a different layout.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(schemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			if err := tx.Set([]byte(schemaKey), []byte(schemaVersion)); err != nil {
				return err
			}
			s.logger.Info("initialized schema", "version", schemaVersion)
			return tx.Commit()
		}
		if err != nil {
			return err
		}
		found, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(found) != schemaVersion {
			return fmt.Errorf("%w: found %q, want %q", storage.ErrSchemaMismatch, found, schemaVersion)
		}
		return nil
	}, true)
}

// Update runs fn in a read-write transaction and commits if fn succeeds.
// Generations detached by Tx.Clear are pruned after the commit.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	var cleared bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		t := &transaction{store: s, tx: tx}
		if err := fn(t); err != nil {
			return err
		}
		cleared = t.cleared
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	if cleared {
		if err := s.prune(0); err != nil {
			s.logger.Warn("failed to prune detached generations", "err", err)
		}
	}
	return nil
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx storage.ReadTx) error) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return fn(&transaction{store: s, tx: tx})
	}, false)
}

// NewGeneration reserves a staging generation.
func (s *Store) NewGeneration(ctx context.Context) (core.ID, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	gen, err := nextID(s.genSeq)
	if err != nil {
		return 0, err
	}
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeGenerationKey(gen), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("reserved generation", "generation", gen)
	return gen, nil
}

// Publish makes gen the active generation and prunes every other one.
func (s *Store) Publish(ctx context.Context, gen core.ID) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := requireGeneration(tx, gen); err != nil {
			return err
		}
		if err := tx.Set([]byte(activeGenKey), storage.MarshalID(gen)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	s.logger.Debug("published generation", "generation", gen)
	if err := s.prune(gen); err != nil {
		s.logger.Warn("failed to prune old generations", "err", err)
	}
	return nil
}

// Discard deletes an unpublished generation.
func (s *Store) Discard(ctx context.Context, gen core.ID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	var active core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		active, err = activeGeneration(tx)
		return err
	}, false)
	if err != nil {
		return err
	}
	if gen == active {
		return fmt.Errorf("generation %d is active and cannot be discarded", gen)
	}
	s.logger.Debug("discarding generation", "generation", gen)
	return s.backend.DropPrefix(generationPrefixes(gen)...)
}

// prune drops every generation except keep.
func (s *Store) prune(keep core.ID) error {
	var stale []core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(generationPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if gen := idSuffix(iter.Item().Key()); gen != keep {
				stale = append(stale, gen)
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	var prefixes [][]byte
	for _, gen := range stale {
		prefixes = append(prefixes, generationPrefixes(gen)...)
	}
	if len(stale) > 0 {
		s.logger.Debug("pruning generations", "count", len(stale))
	}
	return s.backend.DropPrefix(prefixes...)
}

// nextID draws an ID from seq.
func nextID(seq *badger.Sequence) (core.ID, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		id, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(id), nil
}

func activeGeneration(tx *badger.Txn) (core.ID, error) {
	item, err := tx.Get([]byte(activeGenKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var gen core.ID
	err = item.Value(func(val []byte) error {
		var err error
		gen, err = storage.UnmarshalID(val)
		return err
	})
	return gen, err
}

func requireGeneration(tx *badger.Txn, gen core.ID) error {
	_, err := tx.Get(makeGenerationKey(gen))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: generation %d", storage.ErrNotFound, gen)
	}
	return err
}
