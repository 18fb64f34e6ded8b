package blockcache

import "errors"

var (
	// ErrUnknownFile is returned when a file ID has no descriptor.
	ErrUnknownFile = errors.New("blockcache: unknown file id")

	// ErrOutOfRange is returned when a requested byte range does not fit
	// inside the target block file.
	ErrOutOfRange = errors.New("blockcache: byte range out of file bounds")

	// ErrSizeMismatch is returned when a block file on disk does not hold
	// the number of bytes its descriptor declares.
	ErrSizeMismatch = errors.New("blockcache: file size mismatch")

	// ErrClosed is returned when the cache has been closed.
	ErrClosed = errors.New("blockcache: cache is closed")
)
