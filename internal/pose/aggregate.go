package pose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/vmask/internal/subclip"
)

// Backend estimates poses for every frame of one sub-clip. The result
// slice is indexed by sub-clip frame; nil entries mean no detection.
type Backend interface {
	Estimate(ctx context.Context, clip subclip.Clip) ([]*Pose, error)
}

// Aggregator dispatches each sub-clip to the backend selected by the
// object's strategy and assembles full-length pose tracks.
type Aggregator struct {
	backends map[Strategy]Backend
}

// NewAggregator builds the strategy-indexed dispatch table. The none
// strategy never dispatches and needs no backend.
func NewAggregator(backends map[Strategy]Backend) *Aggregator {
	return &Aggregator{backends: backends}
}

// Aggregate processes the clips in the order given (ascending segment
// start within each object) and returns one track per object that
// produced pose data. Every returned track has length frameCount.
func (a *Aggregator) Aggregate(ctx context.Context, clips []subclip.Clip, strategies []Strategy, frameCount int) (map[int]Track, error) {
	tracks := make(map[int]Track)

	for _, clip := range clips {
		if clip.ObjectID < 1 || clip.ObjectID > len(strategies) {
			return nil, fmt.Errorf("sub-clip for object %d has no strategy", clip.ObjectID)
		}
		strategy := strategies[clip.ObjectID-1]
		if strategy == StrategyNone {
			continue
		}

		backend, ok := a.backends[strategy]
		if !ok {
			return nil, &UnknownStrategyError{Value: string(strategy)}
		}

		poses, err := backend.Estimate(ctx, clip)
		if err != nil {
			return nil, fmt.Errorf("estimate object %d segment %d: %w", clip.ObjectID, clip.StartFrame, err)
		}

		tr, ok := tracks[clip.ObjectID]
		if !ok {
			tr = make(Track, frameCount)
			tracks[clip.ObjectID] = tr
		}

		for i, p := range poses {
			idx := clip.StartFrame + i
			if idx >= frameCount {
				slog.Warn("pose backend returned extra frames", "object", clip.ObjectID, "segment", clip.StartFrame, "extra", len(poses)-i)
				break
			}
			tr[idx] = p
		}
	}

	return tracks, nil
}
