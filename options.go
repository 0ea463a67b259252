package rowcache

import (
	"log/slog"
)

const (
	// DefaultPageSize is the number of rows per block unless overridden.
	DefaultPageSize = 100

	// DefaultMaxConcurrentLoads bounds outstanding fetches unless overridden.
	DefaultMaxConcurrentLoads = 2

	// DefaultOverflowSize is how far past the last full block the row-count
	// estimate grows, keeping scrolling open until the end is discovered.
	DefaultOverflowSize = 1
)

type options[T any] struct {
	pageSize           int
	maxBlocks          int
	initialRowCount    int
	overflowSize       int
	maxConcurrentLoads int
	loadRatePerSec     float64
	listeners          []Listener[T]
	logger             *Logger
}

// Option configures Cache constructor behavior.
type Option[T any] func(*options[T])

func applyOptions[T any](opts []Option[T]) *options[T] {
	o := &options[T]{
		pageSize:           DefaultPageSize,
		maxBlocks:          0, // unbounded
		initialRowCount:    -1,
		overflowSize:       DefaultOverflowSize,
		maxConcurrentLoads: DefaultMaxConcurrentLoads,
		logger:             NoopLogger(),
	}
	for _, fn := range opts {
		if fn != nil {
			fn(o)
		}
	}
	if o.initialRowCount == -1 {
		o.initialRowCount = o.pageSize
	}
	return o
}

// WithPageSize configures how many rows each block owns. Row index i maps to
// block i/pageSize.
func WithPageSize[T any](pageSize int) Option[T] {
	return func(o *options[T]) {
		o.pageSize = pageSize
	}
}

// WithMaxBlocks bounds how many blocks stay resident. Each block creation
// that pushes the cache over this bound evicts the least recently used other
// block. Zero (the default) disables eviction.
func WithMaxBlocks[T any](maxBlocks int) Option[T] {
	return func(o *options[T]) {
		o.maxBlocks = maxBlocks
	}
}

// WithInitialRowCount sets the row-count estimate the cache starts with,
// before any block has loaded. Defaults to one page so a fresh view has
// rows to ask for.
func WithInitialRowCount[T any](count int) Option[T] {
	return func(o *options[T]) {
		o.initialRowCount = count
	}
}

// WithOverflowSize controls how many rows past the highest loaded block the
// row-count estimate grows while the dataset end is undiscovered. Larger
// values give scrolling more runway per load.
func WithOverflowSize[T any](overflow int) Option[T] {
	return func(o *options[T]) {
		o.overflowSize = overflow
	}
}

// WithMaxConcurrentLoads bounds how many block fetches may be outstanding
// at once. Further eligible blocks wait; on every completion the cache
// re-checks for the next block to load.
func WithMaxConcurrentLoads[T any](n int) Option[T] {
	return func(o *options[T]) {
		o.maxConcurrentLoads = n
	}
}

// WithLoadRateLimit paces fetch starts to at most perSecond per second.
// Zero or negative disables pacing (the default).
func WithLoadRateLimit[T any](perSecond float64) Option[T] {
	return func(o *options[T]) {
		o.loadRatePerSec = perSecond
	}
}

// WithListener registers a change listener. May be given multiple times;
// listeners are notified in registration order.
func WithListener[T any](l Listener[T]) Option[T] {
	return func(o *options[T]) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, the noop logger is used.
func WithLogger[T any](logger *Logger) Option[T] {
	return func(o *options[T]) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is a convenience for WithLogger(NewTextLogger(level)).
func WithLogLevel[T any](level slog.Level) Option[T] {
	return func(o *options[T]) {
		o.logger = NewTextLogger(level)
	}
}
