package track

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/vmask/internal/mask"
)

// frameWithBox builds a mask with the inclusive box region set.
func frameWithBox(w, h int, b Box) mask.Mask {
	m := mask.New(w, h)
	for y := b[1]; y <= b[3]; y++ {
		for x := b[0]; x <= b[2]; x++ {
			m.Set(x, y)
		}
	}
	return m
}

func newStore(t *testing.T, w, h int, frames [][]mask.Mask) *mask.Store {
	t.Helper()
	store, err := mask.NewStore(w, h, frames)
	require.NoError(t, err)
	return store
}

func TestTightBox(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		m := frameWithBox(64, 48, Box{10, 5, 20, 15})
		b, ok := TightBox(m)
		require.True(t, ok)
		require.Equal(t, Box{10, 5, 20, 15}, b)
	})
	t.Run("empty", func(t *testing.T) {
		_, ok := TightBox(mask.New(64, 48))
		require.False(t, ok)
	})
	t.Run("singlePixel", func(t *testing.T) {
		m := mask.New(8, 8)
		m.Set(3, 4)
		b, ok := TightBox(m)
		require.True(t, ok)
		require.Equal(t, Box{3, 4, 3, 4}, b)
	})
}

func TestIoU(t *testing.T) {
	cases := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", Box{0, 0, 10, 10}, Box{0, 0, 10, 10}, 1},
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 20, 30, 30}, 0},
		{"touching", Box{0, 0, 10, 10}, Box{10, 0, 20, 10}, 0},
		{"half", Box{0, 0, 10, 10}, Box{0, 0, 10, 5}, 0.5},
		{"degenerate", Box{5, 5, 5, 5}, Box{5, 5, 5, 5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, IoU(tc.a, tc.b), 1e-9)
		})
	}
}

func TestCoalesceStaticObject(t *testing.T) {
	// One object, identical mask on every frame: a single segment
	// keyed at frame 0.
	frames := make([][]mask.Mask, 10)
	for i := range frames {
		frames[i] = []mask.Mask{frameWithBox(64, 48, Box{10, 10, 19, 19})}
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	require.Len(t, histories, 1)

	entries := histories[1].Entries()
	require.Len(t, entries, 1)
	require.Equal(t, 0, entries[0].Frame)
	require.Equal(t, Box{10, 10, 19, 19}, entries[0].Box)
}

func TestCoalesceDrift(t *testing.T) {
	// Object jumps by a full box width at frame 5: two segments.
	frames := make([][]mask.Mask, 10)
	for i := range frames {
		b := Box{10, 10, 19, 19}
		if i >= 5 {
			b = Box{40, 10, 49, 19}
		}
		frames[i] = []mask.Mask{frameWithBox(64, 48, b)}
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	entries := histories[1].Entries()
	require.Len(t, entries, 2)
	require.Equal(t, 0, entries[0].Frame)
	require.Equal(t, 5, entries[1].Frame)
	require.Equal(t, Box{40, 10, 49, 19}, entries[1].Box)
}

func TestCoalesceActiveBoxExtends(t *testing.T) {
	// Gradual motion: the active box is the running union, so the
	// drift cut happens against the union, not the last raw box, and
	// the recorded entry is never rewritten.
	boxes := []Box{
		{0, 0, 9, 9},
		{5, 0, 14, 9},  // IoU vs active {0,0,9,9} ≈ 0.29: extend
		{10, 0, 19, 9}, // IoU vs active {0,0,14,9} ≈ 0.21: cut
	}
	frames := make([][]mask.Mask, len(boxes))
	for i, b := range boxes {
		frames[i] = []mask.Mask{frameWithBox(64, 48, b)}
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	entries := histories[1].Entries()
	require.Len(t, entries, 2)
	require.Equal(t, Entry{Frame: 0, Box: Box{0, 0, 9, 9}}, entries[0])
	require.Equal(t, Entry{Frame: 2, Box: Box{10, 0, 19, 9}}, entries[1])
}

func TestCoalesceEmptyFrameContinuesSegment(t *testing.T) {
	// A frame where the object disappears produces no update.
	frames := [][]mask.Mask{
		{frameWithBox(64, 48, Box{10, 10, 19, 19})},
		{mask.New(64, 48)},
		{frameWithBox(64, 48, Box{10, 10, 19, 19})},
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	require.Len(t, histories[1].Entries(), 1)
}

func TestCoalesceObjectNeverPresent(t *testing.T) {
	frames := [][]mask.Mask{
		{frameWithBox(64, 48, Box{1, 1, 5, 5}), mask.New(64, 48)},
		{frameWithBox(64, 48, Box{1, 1, 5, 5}), mask.New(64, 48)},
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	require.Contains(t, histories, 1)
	require.NotContains(t, histories, 2)
}

func TestCoalesceLateAppearanceKeyedAtZero(t *testing.T) {
	// An object first seen at frame 3 still gets its first segment
	// keyed at 0, so floor lookups cover the whole video.
	frames := [][]mask.Mask{
		{mask.New(64, 48)},
		{mask.New(64, 48)},
		{mask.New(64, 48)},
		{frameWithBox(64, 48, Box{10, 10, 19, 19})},
	}
	store := newStore(t, 64, 48, frames)

	histories := Coalesce(store, DefaultIoUThreshold)
	entries := histories[1].Entries()
	require.Len(t, entries, 1)
	require.Equal(t, 0, entries[0].Frame)
}

func TestHistoryFloor(t *testing.T) {
	h := &History{}
	h.Append(0, Box{0, 0, 1, 1})
	h.Append(5, Box{2, 2, 3, 3})
	h.Append(9, Box{4, 4, 5, 5})

	cases := []struct {
		frame int
		want  Box
	}{
		{0, Box{0, 0, 1, 1}},
		{4, Box{0, 0, 1, 1}},
		{5, Box{2, 2, 3, 3}},
		{8, Box{2, 2, 3, 3}},
		{9, Box{4, 4, 5, 5}},
		{100, Box{4, 4, 5, 5}},
	}
	for _, tc := range cases {
		b, ok := h.Floor(tc.frame)
		require.True(t, ok)
		require.Equal(t, tc.want, b, "frame %d", tc.frame)
	}
}

func TestHistorySegments(t *testing.T) {
	h := &History{}
	h.Append(0, Box{0, 0, 1, 1})
	h.Append(5, Box{2, 2, 3, 3})

	segs := h.Segments(10)
	require.Equal(t, []Segment{
		{Start: 0, End: 5, Box: Box{0, 0, 1, 1}},
		{Start: 5, End: 10, Box: Box{2, 2, 3, 3}},
	}, segs)
}

func TestHistoryMap(t *testing.T) {
	h := &History{}
	h.Append(0, Box{10, 10, 20, 20})

	mapped := h.Map(func(b Box) Box { return Refine(b, 100, 100) })

	// Original untouched, mapped keeps the key.
	require.Equal(t, Box{10, 10, 20, 20}, h.Entries()[0].Box)
	require.Equal(t, 0, mapped.Entries()[0].Frame)
	require.NotEqual(t, h.Entries()[0].Box, mapped.Entries()[0].Box)
}
