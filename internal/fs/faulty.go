package fs

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Fault defines specific failure behavior for reads.
type Fault struct {
	FailOnOpen     bool  // Fail the Open call itself.
	FailAfterBytes int64 // Fail reads after this many bytes read FROM THIS FILE. -1 to disable.
	Err            error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS      FileSystem
	mu      sync.Mutex
	rules   map[string]Fault // Filename pattern -> Fault
	Default Fault            // Fallback

	opens int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{
		FS:    fsys,
		rules: make(map[string]Fault),
		Default: Fault{
			FailAfterBytes: -1, // No limit
		},
	}
}

// AddRule adds a fault injection rule for a specific file pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// ClearRules removes all fault injection rules.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]Fault)
}

// Opens returns the number of successful Open calls so far.
func (f *FaultyFS) Opens() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *FaultyFS) Open(name string) (File, error) {
	f.mu.Lock()
	fault := f.Default
	// Match pattern (last winning match)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	if fault.Err == nil {
		fault.Err = fmt.Errorf("injected fault error")
	}
	f.mu.Unlock()

	if fault.FailOnOpen {
		return nil, fault.Err
	}

	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.opens++
	f.mu.Unlock()

	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

type faultyFile struct {
	File
	fault Fault
	read  int64
}

func (ff *faultyFile) Read(p []byte) (n int, err error) {
	if ff.fault.FailAfterBytes >= 0 && ff.read+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.Err
	}
	n, err = ff.File.Read(p)
	if n > 0 {
		ff.read += int64(n)
	}
	return n, err
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (n int, err error) {
	if ff.fault.FailAfterBytes >= 0 && off+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.Err
	}
	return ff.File.ReadAt(p, off)
}
