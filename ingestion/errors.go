package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrSourceRequired is returned when a corpus source is not provided.
	ErrSourceRequired = errors.New("corpus source required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidBatchSize is returned when the embedding batch size is <= 0
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("ingestion already running")
)

// errUnhandledRecord marks a structured record whose payload does not belong
// to a known table.
var errUnhandledRecord = errors.New("unhandled structured record")
