package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func landmarkTrack(xs []float64) Track {
	tr := make(Track, len(xs))
	for i, x := range xs {
		tr[i] = &Pose{
			Strategy: StrategyLandmarkPose,
			Points:   []*Keypoint{{X: x, Y: x / 2}},
		}
	}
	return tr
}

func TestSmoothConstantSeriesUnchanged(t *testing.T) {
	xs := make([]float64, 30)
	for i := range xs {
		xs[i] = 42
	}
	tr := landmarkTrack(xs)

	Smooth(tr, 30, 2)

	for i, p := range tr {
		require.InDelta(t, 42.0, p.Points[0].X, 1e-6, "frame %d", i)
	}
}

func TestSmoothPreservesEndpoints(t *testing.T) {
	xs := make([]float64, 40)
	for i := range xs {
		xs[i] = float64(i)
		if i%2 == 0 {
			xs[i] += 3
		}
	}
	tr := landmarkTrack(xs)

	Smooth(tr, 30, 2)

	require.Equal(t, xs[0], tr[0].Points[0].X)
	require.Equal(t, xs[39], tr[39].Points[0].X)
}

func TestSmoothReducesJitter(t *testing.T) {
	// Linear motion with alternating ±3 jitter: smoothing must cut
	// the deviation from the ramp in the run interior.
	n := 60
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
		if i%2 == 0 {
			xs[i] += 3
		} else {
			xs[i] -= 3
		}
	}
	tr := landmarkTrack(xs)

	Smooth(tr, 30, 2)

	var before, after float64
	for i := 10; i < n-10; i++ {
		before += math.Abs(xs[i] - float64(i))
		after += math.Abs(tr[i].Points[0].X - float64(i))
	}
	require.Less(t, after, before/2)
}

func TestSmoothAbsentSamplesStayAbsent(t *testing.T) {
	xs := make([]float64, 41)
	for i := range xs {
		xs[i] = float64(i)
	}
	tr := landmarkTrack(xs)
	tr[20] = nil

	Smooth(tr, 30, 2)

	require.Nil(t, tr[20])
	require.NotNil(t, tr[19])
	require.NotNil(t, tr[21])
}

func TestSmoothAbsentKeypointSplitsRuns(t *testing.T) {
	xs := make([]float64, 41)
	for i := range xs {
		xs[i] = float64(i)
	}
	tr := landmarkTrack(xs)
	tr[20].Points[0] = nil

	Smooth(tr, 30, 2)

	require.Nil(t, tr[20].Points[0])
}

func TestSmoothShortRunPassesThrough(t *testing.T) {
	xs := []float64{5, 9, 1, 7, 2, 8}
	tr := landmarkTrack(xs)

	Smooth(tr, 30, 2)

	for i, want := range xs {
		require.Equal(t, want, tr[i].Points[0].X, "frame %d", i)
	}
}

func TestSmoothInvalidCutoffIsNoOp(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	tr := landmarkTrack(xs)

	// Cutoff at/above Nyquist cannot be designed; leave data alone.
	Smooth(tr, 30, 15)
	Smooth(tr, 0, 2)

	for i, want := range xs {
		require.Equal(t, want, tr[i].Points[0].X, "frame %d", i)
	}
}
