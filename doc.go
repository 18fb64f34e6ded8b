// Package blockcache provides a memory-resident, read-only cache over a set
// of large, immutable, file-backed data segments (block files).
//
// Block files are supplied up front as Descriptors and loaded whole on first
// access. Reads are zero-copy: GetBytes returns a sub-slice of the loaded
// buffer. Total resident memory is bounded by a size-based eviction sweep
// driven by the cumulative number of bytes read, and a best-effort background
// prefetcher can warm the next file in scan order.
//
// # Quick Start
//
//	files := []blockcache.Descriptor{
//	    {FileID: 0, Path: "blk00000.dat", SizeBytes: 134217728},
//	    {FileID: 1, Path: "blk00001.dat", SizeBytes: 134217728},
//	}
//
//	cache, _ := blockcache.New(files,
//	    blockcache.WithPrefetch(blockcache.PrefetchForward),
//	    blockcache.WithEvictionThreshold(512<<20),
//	)
//	defer cache.Close()
//
//	var cur blockcache.Cursor
//	defer cur.Close()
//
//	view, err := cache.GetBytes(0, 8, 1024, &cur)
//
// # Cursors
//
// A Cursor is a caller-held shortcut remembering the last two files it
// touched. Repeated reads of the same file through a cursor skip the cache
// lock entirely, and the cursor pins its buffers against eviction, keeping
// returned views valid. A cursor is not safe for concurrent use; give each
// reader goroutine its own.
//
// Without a cursor a returned view stays readable (buffers are garbage
// collected, never recycled), but only a cursor guarantees the view still
// reflects a cache-resident buffer. The opt-in memory-mapped load path
// (WithMmap) unmaps buffers on eviction, so it requires cursor discipline.
//
// # Eviction
//
// Eviction is threshold-triggered and approximate, not LRU. Every read adds
// to a global byte counter; once the counter passes the next sweep mark, a
// sweep evicts entries whose last read is more than the eviction threshold
// behind, but never an entry still referenced by a cursor.
//
// # Prefetch
//
// In PrefetchForward (or PrefetchBackward) mode, the first touch of a file
// schedules a speculative load of the next (previous) file. Notifications
// never block the reader: the prefetcher holds a single-slot mailbox and
// rapid successive requests collapse to the most recent one. Speculative
// load failures are silently ignored; a later demand read simply loads
// synchronously.
package blockcache
