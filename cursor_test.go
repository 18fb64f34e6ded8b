package blockcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_ZeroValueAndClose(t *testing.T) {
	var cur Cursor
	assert.Nil(t, cur.match(0))
	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close())
}

func TestCursor_RotationReleasesOldest(t *testing.T) {
	descs, _ := writeBlockFiles(t, 3, 32)

	c, err := New(descs)
	require.NoError(t, err)
	defer c.Close()

	var cur Cursor

	_, err = c.GetBytes(0, 0, 32, &cur)
	require.NoError(t, err)
	_, err = c.GetBytes(1, 0, 32, &cur)
	require.NoError(t, err)

	b0, b1 := cur.prev, cur.cur
	require.NotNil(t, b0)
	require.NotNil(t, b1)
	assert.EqualValues(t, 0, b0.fileID)
	assert.EqualValues(t, 1, b1.fileID)
	assert.EqualValues(t, 2, b0.refs.Load()) // cache + cursor
	assert.EqualValues(t, 2, b1.refs.Load())

	// A third file pushes out the oldest pin.
	_, err = c.GetBytes(2, 0, 32, &cur)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b0.refs.Load()) // cache only
	assert.EqualValues(t, 2, b1.refs.Load())

	require.NoError(t, cur.Close())
	assert.EqualValues(t, 1, b1.refs.Load())
}

func TestCursor_PromotesPreviousSlot(t *testing.T) {
	descs, _ := writeBlockFiles(t, 2, 32)

	c, err := New(descs)
	require.NoError(t, err)
	defer c.Close()

	var cur Cursor
	defer cur.Close()

	_, err = c.GetBytes(0, 0, 32, &cur)
	require.NoError(t, err)
	_, err = c.GetBytes(1, 0, 32, &cur)
	require.NoError(t, err)

	// Reading file 0 again promotes the previous slot without touching
	// the cache; both files stay pinned.
	st := c.Stats()
	_, err = c.GetBytes(0, 0, 32, &cur)
	require.NoError(t, err)
	assert.EqualValues(t, 0, cur.cur.fileID)
	assert.EqualValues(t, 1, cur.prev.fileID)
	assert.Equal(t, st.Hits+1, c.Stats().Hits)
	assert.Equal(t, st.Misses, c.Stats().Misses)
}
