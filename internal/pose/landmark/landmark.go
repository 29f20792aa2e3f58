// Package landmark holds the local landmarker backends: pose, face and
// hand models queried frame by frame over a sub-clip.
package landmark

import "image"

// Point is one normalized landmark: x and y in [0, 1] relative to the
// input image, z is depth, Visibility the model's estimate that the
// point is visible.
type Point struct {
	X          float64
	Y          float64
	Z          float64
	Visibility float64
}

// Landmarker detects landmark sets on consecutive video frames.
// Timestamps must be monotonically increasing within one clip. The
// outer slice holds one entry per detected instance; callers use the
// first.
type Landmarker interface {
	DetectForVideo(img image.Image, timestampMS int64) ([][]Point, error)
	Close() error
}

// Kind names the three landmarker configurations.
type Kind string

const (
	KindPose Kind = "pose"
	KindFace Kind = "face"
	KindHand Kind = "hand"
)

// pointCount returns the landmark count each model emits.
func (k Kind) pointCount() int {
	switch k {
	case KindPose:
		return 33
	case KindFace:
		return 478
	case KindHand:
		return 21
	default:
		return 0
	}
}

// modelFile returns the model file name under the models directory.
func (k Kind) modelFile() string {
	switch k {
	case KindPose:
		return "pose_landmarker.onnx"
	case KindFace:
		return "face_landmarker.onnx"
	case KindHand:
		return "hand_landmarker.onnx"
	default:
		return ""
	}
}
