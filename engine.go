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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/ai/openai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/corpus"
	"github.com/poiesic/corpora/ingestion"
	"github.com/poiesic/corpora/search"
	"github.com/poiesic/corpora/storage"
	"github.com/poiesic/corpora/storage/badger"
)

// Engine owns the store, the corpus and the embedding provider, and
// exposes full ingestion and hybrid search.
type Engine struct {
	settings    Settings
	backend     *badger.Backend
	store       storage.Store
	source      *corpus.Source
	provider    ai.AIProvider
	providerErr error
	pipeline    *ingestion.Pipeline
	structured  *search.StructuredRetriever
	hybrid      *search.HybridRetriever
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	fsys     fs.FS
	inMemory bool
	progress io.Writer
	monitor  search.SearchMonitor
	logger   *slog.Logger
}

// WithProvider uses provider instead of creating an OpenAI provider from
// Settings.AI. The engine takes ownership and closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithCorpusFS reads the corpus from fsys instead of Settings.CorpusRoot.
func WithCorpusFS(fsys fs.FS) EngineOption {
	return func(o *engineOptions) {
		o.fsys = fsys
	}
}

// WithInMemory keeps the database in memory. Settings.DatabasePath is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithProgress reports embedding progress during ingestion.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithMonitor observes hybrid searches.
func WithMonitor(monitor search.SearchMonitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = monitor
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens the store and the corpus described by settings.
//
// A provider that cannot be created, typically for a missing API key, does
// not fail NewEngine: the error is kept and returned by RunFullIngestion
// and HybridSearch, so read-only commands still work.
func NewEngine(settings Settings, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.AI == nil {
		settings.AI = ai.DefaultConfig()
	}

	source, err := openSource(settings, options.fsys)
	if err != nil {
		return nil, err
	}

	if !options.inMemory && settings.DatabasePath == "" {
		return nil, fmt.Errorf("%w: settings: DatabasePath is required", core.ErrConfiguration)
	}
	backend, err := badger.OpenBackend(settings.DatabasePath, options.inMemory, options.logger)
	if err != nil {
		return nil, err
	}

	store, err := badger.NewStore(backend, badger.WithLogger(options.logger))
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		store.Close()
		backend.Close()
		return nil, err
	}

	e := &Engine{
		settings: settings,
		backend:  backend,
		store:    store,
		source:   source,
		provider: options.provider,
		logger:   options.logger.With("component", "engine"),
	}

	if e.provider == nil {
		e.provider, e.providerErr = openai.NewProvider(settings.AI)
		if e.providerErr != nil {
			e.logger.Warn("embedding provider unavailable", "err", e.providerErr)
		}
	}

	if err := e.wire(options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func openSource(settings Settings, fsys fs.FS) (*corpus.Source, error) {
	if fsys != nil {
		return corpus.NewSource(fsys)
	}
	if settings.CorpusRoot == "" {
		return nil, fmt.Errorf("%w: settings: CorpusRoot is required", core.ErrConfiguration)
	}
	return corpus.Open(settings.CorpusRoot)
}

// wire builds the pipeline and retrievers.
func (e *Engine) wire(options *engineOptions) error {
	searchOpts := append(e.settings.searchOptions(), search.WithLogger(options.logger), search.WithMonitor(options.monitor))

	var err error
	e.structured, err = search.NewStructuredRetriever(e.store, searchOpts...)
	if err != nil {
		return err
	}
	if e.providerErr != nil {
		return nil
	}

	embedder := e.provider.Embedder()
	pipelineOpts := append(e.settings.pipelineOptions(), ingestion.WithLogger(options.logger))
	if options.progress != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(options.progress))
	}
	e.pipeline, err = ingestion.NewPipeline(e.store, e.source, embedder, pipelineOpts...)
	if err != nil {
		return err
	}

	vector, err := search.NewVectorRetriever(e.store, embedder, searchOpts...)
	if err != nil {
		return err
	}
	e.hybrid, err = search.NewHybridRetriever(e.structured, vector, searchOpts...)
	return err
}

// RunFullIngestion rebuilds the store from the corpus. The outcome is
// always reported on the Result; a missing credential fails with
// core.ErrConfiguration before any work is done.
func (e *Engine) RunFullIngestion(ctx context.Context) *ingestion.Result {
	if e.providerErr != nil {
		return ingestion.FailedResult(e.providerErr)
	}
	return e.pipeline.Run(ctx)
}

// HybridSearch returns the structured and vector hits for query.
func (e *Engine) HybridSearch(ctx context.Context, query string) (*core.HybridContext, error) {
	if e.providerErr != nil {
		return nil, e.providerErr
	}
	return e.hybrid.Search(ctx, query)
}

// StructuredSearch returns the structured hits for query. It does not need
// an embedding provider.
func (e *Engine) StructuredSearch(ctx context.Context, query string) ([]core.StructuredHit, error) {
	return e.structured.Search(ctx, query)
}

// Stats returns the row count of every table.
func (e *Engine) Stats(ctx context.Context) (map[core.Table]int, error) {
	counts := make(map[core.Table]int, len(core.ClearOrder))
	err := e.store.View(ctx, func(tx storage.ReadTx) error {
		for _, table := range core.ClearOrder {
			n, err := tx.CountRows(table)
			if err != nil {
				return err
			}
			counts[table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Store returns the underlying store.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Close releases the pipeline, the provider and the store.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Release()
	}

	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing store", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
