package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_OpenAndStat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blk.dat")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	fi, err := Default.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fi.Size())

	f, err := Default.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestFaultyFS_FailOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blk0.dat")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	injected := errors.New("boom")
	ffs := NewFaultyFS(nil)
	ffs.AddRule("blk0", Fault{FailOnOpen: true, FailAfterBytes: -1, Err: injected})

	_, err := ffs.Open(path)
	assert.ErrorIs(t, err, injected)
	assert.EqualValues(t, 0, ffs.Opens())

	ffs.ClearRules()
	f, err := ffs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.EqualValues(t, 1, ffs.Opens())
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blk1.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	injected := errors.New("short read")
	ffs := NewFaultyFS(nil)
	ffs.AddRule("blk1", Fault{FailAfterBytes: 16, Err: injected})

	f, err := ffs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 16)
	_, err = f.Read(buf)
	require.NoError(t, err)

	_, err = f.Read(buf)
	assert.ErrorIs(t, err, injected)
}
