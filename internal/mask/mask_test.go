package mask

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskSetAtEmpty(t *testing.T) {
	m := New(4, 3)
	require.True(t, m.Empty())

	m.Set(2, 1)
	require.False(t, m.Empty())
	require.True(t, m.At(2, 1))
	require.False(t, m.At(1, 2))
}

func TestMaskCrop(t *testing.T) {
	m := New(6, 6)
	m.Set(2, 2)
	m.Set(3, 3)

	c := m.Crop(2, 2, 5, 5)
	require.Equal(t, 3, c.W)
	require.Equal(t, 3, c.H)
	require.True(t, c.At(0, 0))
	require.True(t, c.At(1, 1))
	require.False(t, c.At(2, 2))
}

func TestNewStore(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		frames := [][]Mask{
			{New(4, 3), New(4, 3)},
			{New(4, 3), New(4, 3)},
		}
		store, err := NewStore(4, 3, frames)
		require.NoError(t, err)
		require.Equal(t, 2, store.FrameCount())
		require.Equal(t, 2, store.ObjectCount())
		require.Equal(t, 4, store.Width())
		require.Equal(t, 3, store.Height())
	})

	t.Run("noFrames", func(t *testing.T) {
		_, err := NewStore(4, 3, nil)
		require.Error(t, err)
	})

	t.Run("raggedObjects", func(t *testing.T) {
		frames := [][]Mask{
			{New(4, 3), New(4, 3)},
			{New(4, 3)},
		}
		_, err := NewStore(4, 3, frames)
		require.Error(t, err)
	})
}

func TestStoreAtIsOneBased(t *testing.T) {
	first := New(4, 3)
	first.Set(0, 0)
	second := New(4, 3)
	second.Set(3, 2)

	store, err := NewStore(4, 3, [][]Mask{{first, second}})
	require.NoError(t, err)

	require.True(t, store.At(0, 1).At(0, 0))
	require.True(t, store.At(0, 2).At(3, 2))
}
