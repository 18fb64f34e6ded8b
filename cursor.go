package blockcache

// Cursor is a caller-held shortcut remembering the most recently used
// FileBuffers. A read that hits the cursor's current file takes no lock at
// all, which is the common case for sequential scans.
//
// The cursor keeps the last two distinct files pinned, so a record that
// straddles a file boundary can be assembled from two views without either
// buffer being evicted underneath the caller.
//
// The zero value is ready to use. A Cursor is not safe for concurrent use;
// give each reader goroutine its own. Call Close when done reading to
// release the pinned buffers back to the eviction sweep.
type Cursor struct {
	cur  *FileBuffer
	prev *FileBuffer
}

// match returns the pinned buffer for fileID, or nil. A hit on the
// previous slot promotes it, keeping ping-pong reads across a file
// boundary on the lock-free path.
func (c *Cursor) match(fileID uint32) *FileBuffer {
	if c.cur != nil && c.cur.fileID == fileID {
		return c.cur
	}
	if c.prev != nil && c.prev.fileID == fileID {
		c.cur, c.prev = c.prev, c.cur
		return c.cur
	}
	return nil
}

// update installs b, whose reference the cursor takes over, as the current
// buffer. The oldest pinned buffer is released.
func (c *Cursor) update(b *FileBuffer) {
	if b == c.cur {
		// Already pinned; drop the extra reference.
		b.release()
		return
	}
	if c.prev != nil {
		c.prev.release()
	}
	c.prev = c.cur
	c.cur = b
}

// Close releases the cursor's pinned buffers. The cursor may be reused
// afterwards.
func (c *Cursor) Close() error {
	if c.cur != nil {
		c.cur.release()
		c.cur = nil
	}
	if c.prev != nil {
		c.prev.release()
		c.prev = nil
	}
	return nil
}
