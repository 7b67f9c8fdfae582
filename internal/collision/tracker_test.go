package collision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	tr := NewTracker()

	first, dup := tr.Track("Foo", 1)
	require.False(t, dup)
	require.Equal(t, int64(1), first)

	first, dup = tr.Track("Bar", 2)
	require.False(t, dup)
	require.Equal(t, int64(2), first)

	first, dup = tr.Track("Foo", 3)
	require.True(t, dup)
	require.Equal(t, int64(1), first, "collision reports the first claimant")

	require.Equal(t, 2, tr.Count())
}

func TestTrackIgnoresEmptyNames(t *testing.T) {
	tr := NewTracker()

	_, dup := tr.Track("", 1)
	require.False(t, dup)
	_, dup = tr.Track("", 2)
	require.False(t, dup)
	require.Zero(t, tr.Count())
}

func TestReset(t *testing.T) {
	tr := NewTracker()

	tr.Track("Foo", 1)
	tr.Reset()

	_, dup := tr.Track("Foo", 2)
	require.False(t, dup)
	require.Equal(t, 1, tr.Count())
}
