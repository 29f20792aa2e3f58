package landmark

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/subclip"
	"github.com/your-org/vmask/internal/video"
)

// Backend adapts a Landmarker to the aggregator's Backend interface:
// it opens the sub-clip locally and queries the model once per frame
// with the clip's millisecond timestamp, keeping at most the first
// detected instance.
type Backend struct {
	landmarker Landmarker
	strategy   pose.Strategy
}

func NewBackend(lm Landmarker, strategy pose.Strategy) *Backend {
	return &Backend{landmarker: lm, strategy: strategy}
}

func (b *Backend) Estimate(ctx context.Context, clip subclip.Clip) ([]*pose.Pose, error) {
	if r, ok := b.landmarker.(interface{ Reset() }); ok {
		r.Reset()
	}

	reader, err := video.OpenReader(clip.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	rgb := gocv.NewMat()
	defer rgb.Close()

	var poses []*pose.Pose
	for reader.Read(&frame) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB)
		timestampMS := reader.TimestampMS()

		img, err := rgb.ToImage()
		if err != nil {
			return nil, fmt.Errorf("convert frame: %w", err)
		}

		detections, err := b.landmarker.DetectForVideo(img, timestampMS)
		if err != nil {
			return nil, err
		}

		if len(detections) == 0 {
			poses = append(poses, nil)
			continue
		}
		poses = append(poses, toPose(detections[0], b.strategy))
	}
	return poses, nil
}

func toPose(points []Point, strategy pose.Strategy) *pose.Pose {
	kps := make([]*pose.Keypoint, len(points))
	for i, p := range points {
		kps[i] = &pose.Keypoint{X: p.X, Y: p.Y, Score: p.Visibility}
	}
	return &pose.Pose{Strategy: strategy, Points: kps}
}
