package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectColorDeterministic(t *testing.T) {
	for id := 1; id <= 20; id++ {
		require.Equal(t, ObjectColor(id), ObjectColor(id))
	}
}

func TestObjectColorDistinctWithinPalette(t *testing.T) {
	seen := map[[3]uint8]int{}
	for id := 1; id <= len(palette); id++ {
		c := ObjectColor(id)
		key := [3]uint8{c.R, c.G, c.B}
		prev, dup := seen[key]
		require.False(t, dup, "object %d shares a color with object %d", id, prev)
		seen[key] = id
	}
}

func TestObjectColorWrapsAround(t *testing.T) {
	require.Equal(t, ObjectColor(1), ObjectColor(1+len(palette)))
}
