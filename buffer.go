package blockcache

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/blockcache/internal/fs"
	"github.com/hupe1980/blockcache/internal/mmap"
	"github.com/hupe1980/blockcache/internal/resource"
)

// FileBuffer holds the fully-loaded bytes of one block file.
//
// A FileBuffer is shared between the cache entry and any cursors pinning it;
// a reference count gates eviction so the bytes are never released while a
// holder remains. The bytes are immutable after load.
type FileBuffer struct {
	fileID uint32
	data   []byte

	// lastSeen records the global cumulative-read counter value observed
	// by the most recent read of this buffer. Advisory only: it feeds the
	// approximate staleness check of the eviction sweep.
	lastSeen atomic.Uint64

	// touched flips once, on the first demand resolve. Guarded by the
	// cache lock. It gates the one-time prefetch notification.
	touched bool

	// refs counts the cache's own reference plus one per pinning cursor.
	// New references are only handed out under the cache lock, so a count
	// of 1 observed under that lock means the cache is the sole owner.
	refs atomic.Int32

	// mapping is non-nil when the buffer is memory-mapped rather than
	// heap-allocated; the final release unmaps it.
	mapping *mmap.Mapping

	rc          *resource.Controller
	memReserved bool
}

// FileID returns the block file this buffer holds.
func (b *FileBuffer) FileID() uint32 { return b.fileID }

// Size returns the buffer length in bytes.
func (b *FileBuffer) Size() uint64 { return uint64(len(b.data)) }

// slice returns a zero-copy view of [off, off+size). Bounds are validated
// by the caller (GetBytes) before reaching this hot path.
func (b *FileBuffer) slice(off uint64, size uint32) []byte {
	return b.data[off : off+uint64(size)]
}

// recordRead adds size to the global cumulative-read counter and stores the
// resulting total as this buffer's last-seen mark. The two counters carry no
// ordering relationship; both are advisory inputs to the sweep.
func (b *FileBuffer) recordRead(size uint64, global *atomic.Uint64) {
	b.lastSeen.Store(global.Add(size))
}

// retain adds a reference. Must only be called while the buffer is known
// to be live: under the cache lock, or from a cursor that already holds
// a reference.
func (b *FileBuffer) retain() {
	b.refs.Add(1)
}

// release drops a reference, freeing the buffer when the last one goes.
func (b *FileBuffer) release() {
	if b.refs.Add(-1) > 0 {
		return
	}
	b.rc.ReleaseMemory(int64(len(b.data)), b.memReserved)
	if b.mapping != nil {
		_ = b.mapping.Close()
		b.mapping = nil
	}
	b.data = nil
}

// loadConfig carries the pieces of the cache configuration the loader needs.
type loadConfig struct {
	fs      fs.FileSystem
	useMmap bool
	rc      *resource.Controller
}

// loadBuffer reads the block file named by d in full into a new FileBuffer.
// The load is synchronous and blocking.
//
// Speculative loads respect the memory budget and fail fast when it is
// exhausted; demand loads always proceed. The returned buffer starts with a
// single reference, owned by the caller.
func loadBuffer(d Descriptor, cfg loadConfig, speculative bool) (*FileBuffer, error) {
	memReserved := true
	if speculative {
		if err := cfg.rc.AcquireMemory(int64(d.SizeBytes)); err != nil {
			return nil, err
		}
	} else {
		memReserved = cfg.rc.ForceAcquireMemory(int64(d.SizeBytes))
	}

	b := &FileBuffer{
		fileID:      d.FileID,
		rc:          cfg.rc,
		memReserved: memReserved,
	}
	b.refs.Store(1)

	var err error
	if cfg.useMmap && d.Codec == CodecNone {
		err = b.loadMapped(d)
	} else {
		err = b.loadCopy(d, cfg.fs)
	}
	if err != nil {
		cfg.rc.ReleaseMemory(int64(d.SizeBytes), memReserved)
		return nil, fmt.Errorf("load block file %d (%s): %w", d.FileID, d.Path, err)
	}

	return b, nil
}

// loadMapped maps the file read-only instead of copying it. Only raw files
// qualify; compressed files must be decoded into a heap buffer.
func (b *FileBuffer) loadMapped(d Descriptor) error {
	m, err := mmap.Open(d.Path)
	if err != nil {
		return err
	}
	if uint64(m.Size()) < d.SizeBytes {
		_ = m.Close()
		return fmt.Errorf("%w: on disk %d bytes, descriptor declares %d", ErrSizeMismatch, m.Size(), d.SizeBytes)
	}

	// Block files are scanned front to back most of the time.
	_ = m.Advise(mmap.AccessSequential)

	b.mapping = m
	b.data = m.Bytes()[:d.SizeBytes]
	return nil
}

// loadCopy reads (and, for compressed codecs, decodes) exactly SizeBytes
// into a freshly allocated buffer.
func (b *FileBuffer) loadCopy(d Descriptor, fsys fs.FileSystem) error {
	f, err := fsys.Open(d.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch d.Codec {
	case CodecZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	case CodecLZ4:
		r = lz4.NewReader(f)
	}

	buf := make([]byte, d.SizeBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: descriptor declares %d bytes: %v", ErrSizeMismatch, d.SizeBytes, err)
		}
		return err
	}

	b.data = buf
	return nil
}
