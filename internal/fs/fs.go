// Package fs abstracts read-only file access for testability.
//
// The cache never writes to block files, so the surface is deliberately
// small: open for reading, stat. FaultyFS wraps any FileSystem and injects
// open and read failures for tests.
package fs

import (
	"io"
	"os"
)

// File represents an open block file.
type File interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts file system operations for testability.
type FileSystem interface {
	Open(name string) (File, error)
	Stat(name string) (os.FileInfo, error)
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) Open(name string) (File, error)        { return os.Open(name) }
func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// Default is the default local file system.
var Default FileSystem = LocalFS{}
