package pose

import "github.com/your-org/vmask/internal/track"

// DefaultConfidenceThreshold gates openpose confidence and
// landmark_pose visibility during reprojection.
const DefaultConfidenceThreshold = 0.05

// Reproject rewrites a track in place from sub-clip local coordinates
// to full-frame pixel coordinates. For every frame the refined box is
// found by floor lookup on the segment-start keys. Openpose keypoints
// are translated by the box origin; landmarker keypoints are
// denormalized over the box extent. A negative threshold disables the
// confidence/visibility gate.
func Reproject(tr Track, strategy Strategy, refined *track.History, threshold float64) {
	for idx := range tr {
		box, ok := refined.Floor(idx)
		if !ok {
			tr[idx] = nil
			continue
		}

		switch strategy {
		case StrategyOpenpose:
			tr[idx] = reprojectOpenpose(tr[idx], box, threshold)
		case StrategyLandmarkPose:
			tr[idx] = reprojectLandmarks(tr[idx], strategy, box, threshold)
		case StrategyLandmarkFace, StrategyLandmarkHand:
			// No visibility gate for face and hand landmarks.
			tr[idx] = reprojectLandmarks(tr[idx], strategy, box, -1)
		}
	}
}

func reprojectOpenpose(p *Pose, box track.Box, threshold float64) *Pose {
	// A missing body vector voids the whole frame; the other vectors
	// are independent.
	if p == nil || p.Body == nil {
		return nil
	}
	return &Pose{
		Strategy:  StrategyOpenpose,
		Body:      translate(p.Body, box, threshold),
		Face:      translate(p.Face, box, threshold),
		LeftHand:  translate(p.LeftHand, box, threshold),
		RightHand: translate(p.RightHand, box, threshold),
	}
}

func translate(kps []*Keypoint, box track.Box, threshold float64) []*Keypoint {
	if kps == nil {
		return nil
	}
	out := make([]*Keypoint, len(kps))
	for i, kp := range kps {
		if kp != nil && (kp.X > 0 || kp.Y > 0) && kp.Score > threshold {
			out[i] = &Keypoint{X: kp.X + float64(box[0]), Y: kp.Y + float64(box[1])}
		}
	}
	return out
}

func reprojectLandmarks(p *Pose, strategy Strategy, box track.Box, threshold float64) *Pose {
	if p == nil {
		return nil
	}
	out := make([]*Keypoint, len(p.Points))
	for i, kp := range p.Points {
		if kp != nil && (kp.X > 0 || kp.Y > 0) && kp.Score > threshold {
			out[i] = &Keypoint{
				X: kp.X*float64(box.Width()) + float64(box[0]),
				Y: kp.Y*float64(box.Height()) + float64(box[1]),
			}
		}
	}
	return &Pose{Strategy: strategy, Points: out}
}
