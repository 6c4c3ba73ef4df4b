package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/corpus"
	"github.com/poiesic/corpora/document"
	"github.com/poiesic/corpora/loaders"
	"github.com/poiesic/corpora/storage"
)

const (
	// DefaultBatchSize is the number of chunks embedded per provider call.
	DefaultBatchSize = 50
	// DefaultMaxAttempts bounds the attempts per embedding batch.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the delay before the first retry.
	DefaultRetryDelay = time.Second
	// DefaultEmbedTimeout bounds a single embedding call.
	DefaultEmbedTimeout = 60 * time.Second
)

// Pipeline rebuilds the whole store from a corpus.
type Pipeline struct {
	store           storage.Store
	source          *corpus.Source
	embedder        ai.Embedder
	extractor       *document.Extractor
	pool            *ants.Pool
	chunkSize       int
	chunkOverlap    int
	batchSize       int
	maxAttempts     int
	retryDelay      time.Duration
	embedTimeout    time.Duration
	strictDocuments bool
	progress        io.Writer
	logger          *slog.Logger
	running         atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for parsing and chunking documents.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunking sets the chunk window size and overlap in tokens.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if _, err := document.Windows(0, size, overlap); err != nil {
			return fmt.Errorf("%w: size %d, overlap %d", err, size, overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithBatchSize sets the number of chunks per embedding call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per embedding batch and the first retry delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithEmbedTimeout bounds each embedding call. Zero disables the bound.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		p.embedTimeout = timeout
		return nil
	}
}

// WithStrictDocuments makes the first unreadable document abort the run
// instead of being skipped and reported.
func WithStrictDocuments(strict bool) Option {
	return func(p *Pipeline) error {
		p.strictDocuments = strict
		return nil
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.Store, source *corpus.Source, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:        store,
		source:       source,
		embedder:     embedder,
		pool:         pool,
		chunkSize:    document.DefaultChunkSize,
		chunkOverlap: document.DefaultChunkOverlap,
		batchSize:    DefaultBatchSize,
		maxAttempts:  DefaultMaxAttempts,
		retryDelay:   DefaultRetryDelay,
		embedTimeout: DefaultEmbedTimeout,
		progress:     io.Discard,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	p.extractor, err = document.NewExtractor(document.WithLogger(p.logger))
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run performs a full rebuild: structured tables are cleared and reloaded
// in one transaction, then every document is chunked, embedded in batches
// and published at once. Failures are reported on the Result, never
// returned as a bare error.
func (p *Pipeline) Run(ctx context.Context) *Result {
	res := newResult()
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if !p.running.CompareAndSwap(false, true) {
		res.fail(ErrRunInProgress)
		return res
	}
	defer p.running.Store(false)

	p.logger.Info("starting full ingestion")
	if err := p.run(ctx, res); err != nil {
		res.fail(err)
		p.logger.Error("ingestion failed", "stage", res.FailedAt.String(), "err", err)
		return res
	}
	res.complete()
	p.logger.Info("ingestion complete", "documents", res.Documents, "chunks", res.Chunks, "batches", res.Batches)
	return res
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	if err := p.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	res.advance(StageSchemaEnsured)

	if err := p.ingestStructured(ctx, res); err != nil {
		return err
	}
	return p.ingestUnstructured(ctx, res)
}

// ingestStructured clears every table and loads the structured sources in
// a single transaction.
func (p *Pipeline) ingestStructured(ctx context.Context, res *Result) error {
	layout := p.source.Layout()
	tables, err := p.loadSources(loaders.Structured(layout), res)
	if err != nil {
		return err
	}
	endpoints, err := p.loadSources([]loaders.Loader{loaders.OpenAPI(layout)}, res)
	if err != nil {
		return err
	}

	rows := make(map[core.Table]int)
	skipped := 0
	err = p.store.Update(ctx, func(tx storage.Tx) error {
		p.logger.Info("clearing existing data")
		if err := tx.Clear(); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
		res.advance(StageStructuredCleared)

		p.logger.Info("loading structured corpus tables", "records", len(tables))
		n, err := p.insertRecords(tx, tables, rows)
		if err != nil {
			return err
		}
		skipped += n
		res.advance(StageStructuredLoaded)

		p.logger.Info("loading OpenAPI metadata", "records", len(endpoints))
		n, err = p.insertRecords(tx, endpoints, rows)
		if err != nil {
			return err
		}
		skipped += n
		res.advance(StageOpenAPILoaded)
		return nil
	})
	if err != nil {
		return err
	}

	res.Rows = rows
	res.SkippedRecords = skipped
	res.advance(StageStructuredCommitted)
	return nil
}

// loadSources materializes loader output. Missing source files are
// reported and skipped; malformed sources abort the run.
func (p *Pipeline) loadSources(ls []loaders.Loader, res *Result) ([]core.StructuredRecord, error) {
	var records []core.StructuredRecord
	for _, l := range ls {
		recs, err := l.Load(p.source, p.logger)
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("structured source missing", "loader", l.Name, "path", l.Path)
			res.SourceErrors = append(res.SourceErrors, SourceError{Loader: l.Name, Path: l.Path, Error: err.Error()})
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// insertRecords writes records, counting rows per table.
// Records whose payload does not match a known table are logged and skipped.
func (p *Pipeline) insertRecords(tx storage.Tx, records []core.StructuredRecord, rows map[core.Table]int) (skipped int, err error) {
	for _, rec := range records {
		if err := insertRecord(tx, rec); err != nil {
			if errors.Is(err, errUnhandledRecord) {
				p.logger.Warn("unhandled structured record", "table", rec.Table, "payload", fmt.Sprintf("%T", rec.Payload))
				skipped++
				continue
			}
			return skipped, fmt.Errorf("failed to insert into %s: %w", rec.Table, err)
		}
		rows[rec.Table]++
	}
	return skipped, nil
}

func insertRecord(tx storage.Tx, rec core.StructuredRecord) error {
	if rec.Payload == nil || rec.Payload.Table() != rec.Table {
		return errUnhandledRecord
	}
	switch p := rec.Payload.(type) {
	case *core.Plan:
		return tx.InsertPlan(p)
	case *core.Product:
		return tx.InsertProduct(p)
	case *core.ErrorCode:
		return tx.InsertErrorCode(p)
	case *core.Policy:
		return tx.InsertPolicy(p)
	case *core.APIEndpoint:
		return tx.InsertAPIEndpoint(p)
	default:
		return errUnhandledRecord
	}
}

// ingestUnstructured chunks every document, embeds the chunks batch by
// batch into a staging generation and publishes it once all batches are in.
func (p *Pipeline) ingestUnstructured(ctx context.Context, res *Result) error {
	textPaths, err := p.source.TextDocuments()
	if err != nil {
		return err
	}
	pdfPaths, err := p.source.PDFDocuments()
	if err != nil {
		return err
	}
	p.logger.Info("found documents", "text", len(textPaths), "pdf", len(pdfPaths))

	prepared, err := p.prepareDocuments(ctx, append(textPaths, pdfPaths...))
	if err != nil {
		return err
	}
	chunks, err := p.collectChunks(ctx, prepared, res)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		p.logger.Warn("no chunks produced from corpus")
		res.advance(StageUnstructuredEmbedded)
		return nil
	}

	gen, err := p.store.NewGeneration(ctx)
	if err != nil {
		return err
	}
	published := false
	defer func() {
		if published {
			return
		}
		if err := p.store.Discard(context.WithoutCancel(ctx), gen); err != nil {
			p.logger.Warn("failed to discard staged generation", "generation", gen, "err", err)
		}
	}()

	p.logger.Info("embedding chunks", "chunks", len(chunks), "batch_size", p.batchSize)
	documents, batches, err := p.embedAndStage(ctx, gen, chunks)
	res.Batches = batches
	if err != nil {
		return err
	}
	res.advance(StageUnstructuredEmbedded)

	if err := p.store.Publish(ctx, gen); err != nil {
		return fmt.Errorf("failed to publish documents: %w", err)
	}
	published = true
	res.Documents = documents
	res.Chunks = len(chunks)
	return nil
}

// embedAndStage embeds chunks in sequential batches and writes each batch
// in its own transaction. Documents are created on their first chunk.
func (p *Pipeline) embedAndStage(ctx context.Context, gen core.ID, chunks []core.DocumentChunk) (documents, batches int, err error) {
	tracker := NewProgressTracker(p.progress, len(chunks), p.batchSize)
	tracker.Start()
	defer tracker.Finish()

	docIDs := make(map[string]core.ID)
	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]

		vectors, err := p.embedBatch(ctx, batch)
		if err != nil {
			return len(docIDs), batches, fmt.Errorf("failed to embed batch %d: %w", batches+1, err)
		}
		if err := p.stageBatch(ctx, gen, batch, vectors, docIDs); err != nil {
			return len(docIDs), batches, fmt.Errorf("failed to write batch %d: %w", batches+1, err)
		}
		batches++
		tracker.Increment(len(batch))
	}
	return len(docIDs), batches, nil
}

func (p *Pipeline) embedBatch(ctx context.Context, batch []core.DocumentChunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		if p.embedTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.embedTimeout)
			defer cancel()
		}
		v, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("%w: got %d for %d chunks", ai.ErrResultCount, len(v), len(texts))
		}
		vectors = v
		return nil
	}, p.maxAttempts, p.retryDelay, p.logger)
	return vectors, err
}

// stageBatch writes one embedded batch. docIDs maps doc_id to the document
// created for it and is only updated when the transaction commits.
func (p *Pipeline) stageBatch(ctx context.Context, gen core.ID, batch []core.DocumentChunk, vectors [][]float32, docIDs map[string]core.ID) error {
	created := make(map[string]core.ID)
	err := p.store.Update(ctx, func(tx storage.Tx) error {
		for i, c := range batch {
			meta := c.Metadata
			id, ok := docIDs[meta.DocID]
			if !ok {
				id, ok = created[meta.DocID]
			}
			if !ok {
				doc := meta.Document()
				if err := tx.CreateDocument(gen, doc); err != nil {
					return fmt.Errorf("failed to create document %s: %w", meta.DocID, err)
				}
				id = doc.Id
				created[meta.DocID] = id
			}

			record := &core.ChunkRecord{
				DocumentID: id,
				Index:      c.Ordinal,
				Content:    c.Content,
				Metadata:   meta.ChunkMetadata(),
				Vector:     vectors[i],
			}
			if err := tx.InsertChunk(gen, record); err != nil {
				return fmt.Errorf("failed to insert chunk %d of %s: %w", c.Ordinal, meta.DocID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	maps.Copy(docIDs, created)
	return nil
}
