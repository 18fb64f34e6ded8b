package blockcache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Codec identifies the on-disk encoding of a block file.
//
// SizeBytes in a Descriptor is always the decoded size; compressed files
// are decompressed in full at load time.
type Codec uint8

const (
	// CodecNone is a raw, uncompressed block file.
	CodecNone Codec = iota
	// CodecZstd is a zstd-framed block file.
	CodecZstd
	// CodecLZ4 is an lz4-framed block file.
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// DetectCodec infers the codec of a block file from its file extension.
// Unknown extensions map to CodecNone.
func DetectCodec(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	default:
		return CodecNone
	}
}

// Descriptor identifies one block file on disk. Descriptors are supplied
// once, by an external directory/metadata component, and are immutable.
// The cache opens the given path as-is; it does not discover or validate
// files beyond that.
type Descriptor struct {
	// FileID is the stable identifier of the block file, also used as the
	// cache key. Descriptors passed to New must be indexed by FileID.
	FileID uint32

	// Path is the location of the block file on disk.
	Path string

	// SizeBytes is the decoded size of the file's contents. Loads fail
	// with ErrSizeMismatch when the file does not deliver exactly this
	// many bytes.
	SizeBytes uint64

	// Codec is the on-disk encoding. The zero value is CodecNone.
	Codec Codec
}
