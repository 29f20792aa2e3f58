package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefineSquare(t *testing.T) {
	// 10% margin on each side, already square afterwards.
	got := Refine(Box{10, 10, 20, 20}, 100, 100)
	require.Equal(t, Box{9, 9, 21, 21}, got)
}

func TestRefineWideBox(t *testing.T) {
	// Wide box grows its height, floor on top, ceil on bottom.
	got := Refine(Box{10, 10, 30, 20}, 100, 100)
	require.Equal(t, Box{8, 3, 32, 27}, got)
	require.Equal(t, got.Width(), got.Height())
}

func TestRefineTallBox(t *testing.T) {
	got := Refine(Box{40, 10, 50, 40}, 100, 100)
	require.Equal(t, got.Width(), got.Height())
}

func TestRefineClampedAtBorder(t *testing.T) {
	got := Refine(Box{0, 0, 20, 10}, 100, 100)
	// Clipping at the top edge cuts the vertical growth, so the box is
	// not square and touches the frame edge instead.
	require.Equal(t, Box{0, 0, 22, 17}, got)
	touchesEdge := got[0] == 0 || got[1] == 0 || got[2] == 100 || got[3] == 100
	require.True(t, touchesEdge)
}

func TestRefineStaysInsideFrame(t *testing.T) {
	cases := []struct {
		name string
		box  Box
		w, h int
	}{
		{"center", Box{30, 30, 60, 70}, 100, 100},
		{"topLeft", Box{0, 0, 5, 9}, 100, 100},
		{"bottomRight", Box{90, 80, 100, 100}, 100, 100},
		{"fullFrame", Box{0, 0, 100, 100}, 100, 100},
		{"thinSliver", Box{0, 0, 2, 99}, 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Refine(tc.box, tc.w, tc.h)
			require.GreaterOrEqual(t, got[0], 0)
			require.GreaterOrEqual(t, got[1], 0)
			require.LessOrEqual(t, got[2], tc.w)
			require.LessOrEqual(t, got[3], tc.h)
			require.Less(t, got[0], got[2])
			require.Less(t, got[1], got[3])

			squareOrEdge := got.Width() == got.Height() ||
				got[0] == 0 || got[1] == 0 || got[2] == tc.w || got[3] == tc.h
			require.True(t, squareOrEdge, "got %v", got)
		})
	}
}
