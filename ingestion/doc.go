// Package ingestion rebuilds a corpus store from scratch.
//
// A Pipeline run has two phases.
//
// The structured phase reads every structured source (plan matrix, products,
// error codes, world bible policies and the OpenAPI description) before
// touching the store, then clears all tables and inserts the records in a
// single transaction. A malformed source aborts the run with the previous
// data intact. A missing source file is reported on the Result and skipped.
//
// The unstructured phase parses and chunks every markdown and PDF document
// on a worker pool, embeds the chunks in sequential batches and writes each
// batch into a staging generation. Readers see none of it until every batch
// has been written and the generation is published. A failure at any point
// discards the staged generation, leaving the structured tables committed
// and the document tables empty.
//
// Embedding calls are retried with exponential backoff. Configuration
// errors and malformed provider answers are never retried.
//
// Run never returns a bare error: the outcome, the stage reached and the
// counts are reported on a Result whose Status and Detail form the
// service-level answer.
package ingestion
