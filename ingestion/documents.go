package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
)

// preparedDocument is the outcome of reading and chunking one corpus file.
type preparedDocument struct {
	path   string
	chunks []core.DocumentChunk
	err    error
}

// prepareDocuments reads and chunks every path on the worker pool.
// Results keep the order of paths.
func (p *Pipeline) prepareDocuments(ctx context.Context, paths []string) ([]preparedDocument, error) {
	out := make([]preparedDocument, len(paths))
	var wg sync.WaitGroup
	var submitErr error
	for i, path := range paths {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			out[i] = p.prepareDocument(ctx, path)
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("failed to schedule %s: %w", path, err)
			break
		}
	}
	wg.Wait()
	if submitErr != nil {
		return nil, submitErr
	}
	return out, nil
}

func (p *Pipeline) prepareDocument(ctx context.Context, path string) preparedDocument {
	result := preparedDocument{path: path}
	if err := ctx.Err(); err != nil {
		result.err = err
		return result
	}

	data, err := p.source.ReadFile(path)
	if err != nil {
		result.err = fmt.Errorf("failed to read: %w", err)
		return result
	}

	if p.source.IsPDF(path) {
		text, err := document.ExtractPDFText(data)
		if err != nil {
			result.err = err
			return result
		}
		data = []byte(text)
	}

	meta, body, err := p.extractor.Extract(data, path)
	if err != nil {
		result.err = err
		return result
	}

	result.chunks, result.err = document.Chunk(meta, body, p.chunkSize, p.chunkOverlap)
	p.logger.Debug("chunked document", "path", path, "doc_id", meta.DocID, "chunks", len(result.chunks))
	return result
}

// collectChunks flattens prepared documents in order. Failed documents are
// reported on res and skipped, unless strict mode is on or the failure is
// a cancellation.
func (p *Pipeline) collectChunks(ctx context.Context, prepared []preparedDocument, res *Result) ([]core.DocumentChunk, error) {
	var chunks []core.DocumentChunk
	for _, d := range prepared {
		if d.err == nil {
			chunks = append(chunks, d.chunks...)
			continue
		}
		if ctx.Err() != nil || errors.Is(d.err, context.Canceled) || errors.Is(d.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("document %s: %w", d.path, d.err)
		}
		if p.strictDocuments {
			return nil, fmt.Errorf("document %s: %w", d.path, d.err)
		}
		p.logger.Warn("skipping document", "path", d.path, "err", d.err)
		res.DocumentErrors = append(res.DocumentErrors, DocumentError{Path: d.path, Error: d.err.Error()})
	}
	return chunks, nil
}
