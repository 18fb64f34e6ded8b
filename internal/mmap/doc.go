// Package mmap provides read-only memory mapping of block files.
//
// A Mapping owns the mapped byte slice and is responsible for unmapping it.
// The bytes are immutable: files are mapped PROT_READ and never written
// through the mapping.
//
// Platform notes:
//   - Unix: uses mmap/munmap via golang.org/x/sys/unix (madvise for hints)
//   - Windows: uses CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// Mappings are safe for concurrent read access. Close must not be called
// while readers still hold slices obtained from Bytes.
package mmap
