package blockcache

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/blockcache/internal/resource"
)

// noFile is the sentinel "no prefetch target" file ID.
const noFile = math.MaxUint32

// Cache is the central block file cache. It maps file IDs to shared
// FileBuffers, runs the eviction sweep, and signals the prefetcher.
//
// Any number of reader goroutines may call GetBytes concurrently; at most
// one background prefetch task runs alongside them. Two independent
// synchronization domains keep readers off the prefetcher's back: the
// cache lock guards the entry map, while the prefetch mailbox is only ever
// touched with non-blocking sends.
type Cache struct {
	files []Descriptor
	cfg   config
	rc    *resource.Controller

	mu      sync.Mutex
	entries map[uint32]*FileBuffer

	// global is the cumulative count of bytes returned across all entries,
	// the clock that drives eviction. Relaxed with respect to the per-entry
	// lastSeen marks; the sweep trigger is approximate by design.
	global    atomic.Uint64
	nextSweep atomic.Uint64

	// resident tracks bytes held by map-resident entries.
	resident atomic.Int64

	prefetch *prefetcher
	closed   atomic.Bool

	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	prefetchLoads atomic.Uint64
}

// New creates a Cache over the given block files. Descriptors must be
// indexed by FileID: files[i].FileID == i. The prefetch task is started
// only when a prefetch mode is configured.
func New(files []Descriptor, opts ...Option) (*Cache, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if uint64(len(files)) >= uint64(noFile) {
		return nil, fmt.Errorf("blockcache: too many block files (%d)", len(files))
	}
	for i, d := range files {
		if d.FileID != uint32(i) {
			return nil, fmt.Errorf("blockcache: descriptor %d has file id %d, want %d", i, d.FileID, i)
		}
	}

	c := &Cache{
		files: files,
		cfg:   cfg,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   cfg.memoryLimitBytes,
			IOLimitBytesPerSec: cfg.prefetchIOBytesSec,
		}),
		entries: make(map[uint32]*FileBuffer),
	}
	c.nextSweep.Store(cfg.threshold)

	if cfg.prefetchMode != PrefetchDisabled {
		c.prefetch = newPrefetcher(c)
		c.prefetch.start()
	}

	return c, nil
}

// GetBytes returns a zero-copy view of size bytes at offset within block
// file fileID, loading the file if it is not resident. The view aliases the
// cached buffer and must be treated as read-only.
//
// cur may be nil. With a cursor, repeated reads of the same file skip the
// cache lock, and the backing buffer is pinned until the cursor moves on or
// is closed.
func (c *Cache) GetBytes(fileID uint32, offset uint64, size uint32, cur *Cursor) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	// Fast path: the cursor already pins this file. No lock taken.
	var fb *FileBuffer
	ownRef := false
	if cur != nil {
		fb = cur.match(fileID)
	}

	if fb == nil {
		resolved, err := c.resolve(fileID)
		if err != nil {
			return nil, err
		}
		fb = resolved
		ownRef = true
	} else {
		c.hits.Add(1)
	}

	if offset > fb.Size() || uint64(size) > fb.Size()-offset {
		if ownRef {
			fb.release()
		}
		return nil, fmt.Errorf("%w: file %d, offset %d, size %d, file size %d",
			ErrOutOfRange, fileID, offset, size, fb.Size())
	}

	fb.recordRead(uint64(size), &c.global)
	view := fb.slice(offset, size)

	// Hand the resolve reference to the cursor, or drop it once the view
	// is taken. A heap-backed view stays readable either way; only the
	// mmap path requires the cursor pin for continued validity.
	if ownRef {
		if cur != nil {
			cur.update(fb)
		} else {
			fb.release()
		}
	}

	if c.global.Load() >= c.nextSweep.Load() {
		c.sweep()
	}

	return view, nil
}

// resolve finds or creates the entry for fileID under the cache lock. A
// miss loads the file synchronously while the lock is held; that stalls
// unrelated lookups for the duration of one load, a deliberate tradeoff
// since misses are rare on sequential scans.
//
// The returned buffer carries an extra reference for the caller.
func (c *Cache) resolve(fileID uint32) (*FileBuffer, error) {
	if fileID >= uint32(len(c.files)) {
		return nil, fmt.Errorf("%w: %d (have %d files)", ErrUnknownFile, fileID, len(c.files))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClosed
	}

	fb, ok := c.entries[fileID]
	if !ok {
		var err error
		fb, err = loadBuffer(c.files[fileID], c.loadConfig(), false)
		if err != nil {
			// No partial entry is left behind; the next call retries.
			return nil, err
		}
		c.entries[fileID] = fb
		c.resident.Add(int64(fb.Size()))
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}

	// First touch of a freshly loaded entry nudges the prefetcher once.
	if !fb.touched && c.prefetch != nil {
		if next := c.nextFileID(fileID); next != noFile {
			c.prefetch.notify(next)
		}
	}
	fb.touched = true

	fb.retain()
	return fb, nil
}

// nextFileID returns the prefetch target after a first touch of fileID,
// or noFile at the boundary.
func (c *Cache) nextFileID(fileID uint32) uint32 {
	switch c.cfg.prefetchMode {
	case PrefetchForward:
		if fileID+1 >= uint32(len(c.files)) {
			return noFile
		}
		return fileID + 1
	case PrefetchBackward:
		if fileID == 0 {
			return noFile
		}
		return fileID - 1
	default:
		return noFile
	}
}

// sweep scans all entries and evicts those whose last read is more than
// the eviction threshold behind the global clock, provided the cache is
// their sole owner. Entries pinned by a cursor are skipped regardless of
// staleness and simply become eligible once the pin is dropped.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	global := c.global.Load()
	evicted := 0
	for id, fb := range c.entries {
		if fb.lastSeen.Load()+c.cfg.threshold >= global {
			continue
		}
		// refs is only incremented under this lock, so 1 here means no
		// cursor holds the buffer and none can appear mid-eviction.
		if fb.refs.Load() != 1 {
			continue
		}
		delete(c.entries, id)
		c.resident.Add(-int64(fb.Size()))
		fb.release()
		evicted++
	}
	if evicted > 0 {
		c.evictions.Add(uint64(evicted))
		c.cfg.logger.Debug("evicted stale block files", "count", evicted, "resident_bytes", c.resident.Load())
	}

	// Recomputed after every sweep, whether or not anything was evicted.
	c.nextSweep.Store(c.global.Load() + c.cfg.threshold)
}

// Drop unconditionally removes the entry for fileID, if present, regardless
// of reference count or staleness. Holders keep their valid buffer; only the
// cache's own reference is detached. A subsequent GetBytes reloads from disk.
func (c *Cache) Drop(fileID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fb, ok := c.entries[fileID]
	if !ok {
		return
	}
	delete(c.entries, fileID)
	c.resident.Add(-int64(fb.Size()))
	fb.release()
}

// insertPrefetched commits a speculatively loaded buffer to the entry map.
// If a demand resolve won the race the speculative buffer is discarded: the
// resident entry is already touched and may be pinned. Takes over the
// buffer's reference either way.
func (c *Cache) insertPrefetched(fb *FileBuffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		fb.release()
		return false
	}
	if _, ok := c.entries[fb.fileID]; ok {
		fb.release()
		return false
	}
	c.entries[fb.fileID] = fb
	c.resident.Add(int64(fb.Size()))
	return true
}

// isResident reports whether fileID currently has a cache entry.
func (c *Cache) isResident(fileID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[fileID]
	return ok
}

// SizeBytes returns the bytes held by cache-resident entries. Buffers kept
// alive solely by cursors after eviction or Drop are not counted.
func (c *Cache) SizeBytes() int64 {
	return c.resident.Load()
}

// Volume returns the cumulative number of bytes read across all entries.
func (c *Cache) Volume() uint64 {
	return c.global.Load()
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          uint64 // reads served from a resident buffer (cursor or map)
	Misses        uint64 // reads that loaded their file synchronously
	Evictions     uint64 // entries removed by the sweep
	PrefetchLoads uint64 // files warmed by the background task
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		PrefetchLoads: c.prefetchLoads.Load(),
	}
}

// Close stops the prefetch task, waits for it to exit, and drops all cache
// entries. Buffers pinned by cursors stay valid until those cursors close.
// Further calls on the cache return ErrClosed. Close is idempotent.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	if c.prefetch != nil {
		c.prefetch.stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, fb := range c.entries {
		delete(c.entries, id)
		c.resident.Add(-int64(fb.Size()))
		fb.release()
	}
	return nil
}

func (c *Cache) loadConfig() loadConfig {
	return loadConfig{
		fs:      c.cfg.fs,
		useMmap: c.cfg.useMmap,
		rc:      c.rc,
	}
}
