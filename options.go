package blockcache

import (
	"io"
	"log/slog"

	"github.com/hupe1980/blockcache/internal/fs"
)

// PrefetchMode controls whether and in which direction the background
// prefetcher warms the next block file.
type PrefetchMode int

const (
	// PrefetchDisabled runs no background task.
	PrefetchDisabled PrefetchMode = iota
	// PrefetchForward warms fileID+1 on the first touch of a file.
	PrefetchForward
	// PrefetchBackward warms fileID-1 on the first touch of a file.
	PrefetchBackward
)

// DefaultEvictionThreshold is the eviction clock interval used when
// WithEvictionThreshold is not given: a sweep runs every time this many
// bytes have been read, and entries idle for more than this many read
// bytes become eviction candidates.
const DefaultEvictionThreshold uint64 = 512 << 20

type config struct {
	prefetchMode PrefetchMode
	threshold    uint64
	logger       *slog.Logger
	fs           fs.FileSystem
	useMmap      bool

	memoryLimitBytes   int64
	prefetchIOBytesSec int64
}

func defaultConfig() config {
	return config{
		prefetchMode: PrefetchDisabled,
		threshold:    DefaultEvictionThreshold,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		fs:           fs.Default,
	}
}

// Option configures a Cache.
type Option func(*config)

// WithPrefetch sets the prefetch mode. The default is PrefetchDisabled.
func WithPrefetch(mode PrefetchMode) Option {
	return func(c *config) {
		c.prefetchMode = mode
	}
}

// WithEvictionThreshold sets the eviction clock interval in bytes.
// Values <= 0 keep the default.
func WithEvictionThreshold(bytes uint64) Option {
	return func(c *config) {
		if bytes > 0 {
			c.threshold = bytes
		}
	}
}

// WithLogger sets the logger. Only background activity (prefetch, sweeps)
// logs; the read path never does. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMmap memory-maps raw block files instead of copying them to the heap.
// Mapped buffers are unmapped on eviction, so callers must pin buffers with
// a Cursor for as long as they dereference returned views. Compressed files
// always decode to heap buffers.
func WithMmap(enabled bool) Option {
	return func(c *config) {
		c.useMmap = enabled
	}
}

// WithMemoryLimit bounds the bytes held in loaded buffers. The limit only
// steers speculative work: prefetch loads are skipped while over budget,
// demand loads always proceed. 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(c *config) {
		c.memoryLimitBytes = bytes
	}
}

// WithPrefetchIOLimit throttles speculative background loads to the given
// read throughput. Demand loads are never throttled. 0 means unlimited.
func WithPrefetchIOLimit(bytesPerSec int64) Option {
	return func(c *config) {
		c.prefetchIOBytesSec = bytesPerSec
	}
}

// withFileSystem swaps the file system used for copy loads. Test hook.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(c *config) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}
