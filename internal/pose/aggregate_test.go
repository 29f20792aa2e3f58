package pose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/vmask/internal/subclip"
)

// stubBackend returns a fixed number of poses per clip and records the
// clips it was asked about.
type stubBackend struct {
	perClip int
	calls   []subclip.Clip
}

func (s *stubBackend) Estimate(_ context.Context, clip subclip.Clip) ([]*Pose, error) {
	s.calls = append(s.calls, clip)
	poses := make([]*Pose, s.perClip)
	for i := range poses {
		poses[i] = &Pose{Strategy: StrategyLandmarkPose, Points: []*Keypoint{{X: 0.5, Y: 0.5, Score: 1}}}
	}
	return poses, nil
}

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"openpose", "landmark_pose", "landmark_face", "landmark_hand", "none"} {
		t.Run(valid, func(t *testing.T) {
			s, err := ParseStrategy(valid)
			require.NoError(t, err)
			require.Equal(t, Strategy(valid), s)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseStrategy("banana")
		var unknownErr *UnknownStrategyError
		require.ErrorAs(t, err, &unknownErr)
		require.Equal(t, "banana", unknownErr.Value)
		require.Contains(t, err.Error(), "banana")
	})
}

func TestAggregateTrackLengthAndPlacement(t *testing.T) {
	backend := &stubBackend{perClip: 5}
	agg := NewAggregator(map[Strategy]Backend{StrategyLandmarkPose: backend})

	clips := []subclip.Clip{
		{ObjectID: 1, StartFrame: 0},
		{ObjectID: 1, StartFrame: 5},
	}
	tracks, err := agg.Aggregate(context.Background(), clips, []Strategy{StrategyLandmarkPose}, 12)
	require.NoError(t, err)

	tr := tracks[1]
	require.Len(t, tr, 12)
	for i := 0; i < 10; i++ {
		require.NotNil(t, tr[i], "frame %d", i)
	}
	require.Nil(t, tr[10])
	require.Nil(t, tr[11])
}

func TestAggregateNoneNeverDispatches(t *testing.T) {
	backend := &stubBackend{perClip: 3}
	agg := NewAggregator(map[Strategy]Backend{StrategyLandmarkPose: backend})

	clips := []subclip.Clip{
		{ObjectID: 1, StartFrame: 0},
		{ObjectID: 2, StartFrame: 0},
	}
	strategies := []Strategy{StrategyLandmarkPose, StrategyNone}

	tracks, err := agg.Aggregate(context.Background(), clips, strategies, 3)
	require.NoError(t, err)

	require.Contains(t, tracks, 1)
	require.NotContains(t, tracks, 2, "none strategy must produce no track")
	require.Len(t, backend.calls, 1)
	require.Equal(t, 1, backend.calls[0].ObjectID)
}

func TestAggregateUnknownStrategyIsFatal(t *testing.T) {
	agg := NewAggregator(map[Strategy]Backend{})

	clips := []subclip.Clip{{ObjectID: 1, StartFrame: 0}}
	_, err := agg.Aggregate(context.Background(), clips, []Strategy{Strategy("banana")}, 3)

	var unknownErr *UnknownStrategyError
	require.ErrorAs(t, err, &unknownErr)
}

func TestAggregateBackendOverrunIsClipped(t *testing.T) {
	// A backend returning more frames than the video holds must not
	// write past the track.
	backend := &stubBackend{perClip: 10}
	agg := NewAggregator(map[Strategy]Backend{StrategyLandmarkPose: backend})

	clips := []subclip.Clip{{ObjectID: 1, StartFrame: 2}}
	tracks, err := agg.Aggregate(context.Background(), clips, []Strategy{StrategyLandmarkPose}, 5)
	require.NoError(t, err)
	require.Len(t, tracks[1], 5)
}

func TestAggregateClipWithoutStrategy(t *testing.T) {
	agg := NewAggregator(map[Strategy]Backend{})

	clips := []subclip.Clip{{ObjectID: 3, StartFrame: 0}}
	_, err := agg.Aggregate(context.Background(), clips, []Strategy{StrategyNone}, 3)
	require.Error(t, err)
}
