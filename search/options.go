package search

import "log/slog"

const (
	// DefaultStructuredLimit caps both the hits per table and the
	// concatenated structured result.
	DefaultStructuredLimit = 5
	// DefaultVectorLimit is the number of chunks returned by vector search.
	DefaultVectorLimit = 6
)

type options struct {
	logger        *slog.Logger
	perTableLimit int
	globalLimit   int
	k             int
	monitor       SearchMonitor
}

func defaultOptions() *options {
	return &options{
		logger:        slog.Default(),
		perTableLimit: DefaultStructuredLimit,
		globalLimit:   DefaultStructuredLimit,
		k:             DefaultVectorLimit,
		monitor:       &noopMonitor{},
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option configures a retriever. Options that do not apply to a retriever
// are ignored by it.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithPerTableLimit caps the structured hits taken from each table.
func WithPerTableLimit(limit int) Option {
	return func(o *options) error {
		if limit <= 0 {
			return ErrInvalidLimit
		}
		o.perTableLimit = limit
		return nil
	}
}

// WithGlobalLimit caps the concatenated structured hits.
func WithGlobalLimit(limit int) Option {
	return func(o *options) error {
		if limit <= 0 {
			return ErrInvalidLimit
		}
		o.globalLimit = limit
		return nil
	}
}

// WithVectorLimit sets the number of chunks returned by vector search.
func WithVectorLimit(k int) Option {
	return func(o *options) error {
		if k <= 0 {
			return ErrInvalidLimit
		}
		o.k = k
		return nil
	}
}

// WithMonitor observes hybrid searches.
func WithMonitor(monitor SearchMonitor) Option {
	return func(o *options) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		o.monitor = monitor
		return nil
	}
}
