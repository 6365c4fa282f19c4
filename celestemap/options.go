package celestemap

import (
	"log/slog"
)

// Option configures Load, Store and the document codecs.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	header       bool
	trimmedRows  bool
	freshStrings bool
	maxDepth     int

	// tiles limits grid allocation while mapping a decoded tree.
	tiles *tileBudget
}

func newConfig(opts []Option) *config {
	c := &config{
		header:   true,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// WithLogger sets the logger for stage-level debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithoutHeader reads and writes documents that lack the format marker.
func WithoutHeader() Option {
	return func(c *config) {
		c.header = false
	}
}

// WithTrimmedRows accepts tile grids whose rows omit trailing '0' tiles,
// as some editors write them. Such rows are padded on load and trimmed
// again when a modified grid is stored.
func WithTrimmedRows() Option {
	return func(c *config) {
		c.trimmedRows = true
	}
}

// WithFreshStringTable stores with a string table built purely in
// first-use order, ignoring the table a map was loaded with.
func WithFreshStringTable() Option {
	return func(c *config) {
		c.freshStrings = true
	}
}

// WithMaxDepth limits element nesting on decode (default: 512).
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
