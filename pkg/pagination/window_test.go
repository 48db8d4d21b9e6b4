package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageWindow_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := NewPageWindow[string](capacity)
		assert.Error(t, err, "capacity %d", capacity)
	}
}

func TestPageWindow_PutGet(t *testing.T) {
	w, err := NewPageWindow[string](2)
	require.NoError(t, err)

	assert.False(t, w.Put(0, []string{"a", "b"}))

	page, ok := w.Get(0)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, page)

	_, ok = w.Get(1)
	assert.False(t, ok)

	// Replacing an existing page never evicts.
	assert.False(t, w.Put(0, []string{"c"}))
	page, _ = w.Peek(0)
	assert.Equal(t, []string{"c"}, page)
	assert.Equal(t, 1, w.Len())
}

func TestPageWindow_EvictsLeastRecentlyUsed(t *testing.T) {
	w, err := NewPageWindow[int](2)
	require.NoError(t, err)

	w.Put(0, []int{0})
	w.Put(1, []int{1})

	// Touch page 0 so page 1 becomes the eviction candidate.
	_, ok := w.Get(0)
	require.True(t, ok)

	assert.True(t, w.Put(2, []int{2}))
	assert.True(t, w.Contains(0))
	assert.False(t, w.Contains(1))
	assert.True(t, w.Contains(2))
}

func TestPageWindow_PeekDoesNotTouchRecency(t *testing.T) {
	w, err := NewPageWindow[int](2)
	require.NoError(t, err)

	w.Put(0, []int{0})
	w.Put(1, []int{1})
	_, _ = w.Peek(0)
	w.Put(2, []int{2})

	assert.False(t, w.Contains(0))
}

func TestPageWindow_SnapshotAllIsACopy(t *testing.T) {
	w, err := NewPageWindow[int](4)
	require.NoError(t, err)

	w.Put(3, []int{30, 31})
	w.Put(1, []int{10})

	snap := w.SnapshotAll()
	assert.Equal(t, map[int][]int{1: {10}, 3: {30, 31}}, snap)

	w.Put(5, []int{50})
	assert.Len(t, snap, 2)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 4, w.Capacity())
}
