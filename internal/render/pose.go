package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/your-org/vmask/internal/pose"
)

// Keypoint overlay styling shared by all strategies.
var (
	jointColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	dotColor   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// openpose BODY_25 skeleton pairs.
var openposeBodyPairs = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 4}, {1, 5}, {5, 6}, {6, 7},
	{1, 8}, {8, 9}, {9, 10}, {10, 11}, {8, 12}, {12, 13}, {13, 14},
	{0, 15}, {15, 17}, {0, 16}, {16, 18},
	{11, 22}, {22, 23}, {11, 24}, {14, 19}, {19, 20}, {14, 21},
}

// landmark pose model skeleton pairs (33-point topology).
var landmarkPosePairs = [][2]int{
	{11, 12}, {11, 13}, {13, 15}, {12, 14}, {14, 16},
	{11, 23}, {12, 24}, {23, 24},
	{23, 25}, {25, 27}, {27, 29}, {27, 31},
	{24, 26}, {26, 28}, {28, 30}, {28, 32},
	{9, 10}, {0, 9}, {0, 10},
}

// landmark hand model connection pairs (21-point topology).
var landmarkHandPairs = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 4},
	{0, 5}, {5, 6}, {6, 7}, {7, 8},
	{5, 9}, {9, 10}, {10, 11}, {11, 12},
	{9, 13}, {13, 14}, {14, 15}, {15, 16},
	{13, 17}, {17, 18}, {18, 19}, {19, 20}, {0, 17},
}

// DrawPose renders the keypoint overlay appropriate to the pose's
// strategy onto the RGB frame. Keypoints must already be in full-frame
// coordinates.
func DrawPose(img *gocv.Mat, p *pose.Pose) {
	if p == nil {
		return
	}
	switch p.Strategy {
	case pose.StrategyOpenpose:
		drawSkeleton(img, p.Body, openposeBodyPairs, 3)
		drawDots(img, p.Face, 1)
		drawSkeleton(img, p.LeftHand, landmarkHandPairs, 2)
		drawSkeleton(img, p.RightHand, landmarkHandPairs, 2)
	case pose.StrategyLandmarkPose:
		drawSkeleton(img, p.Points, landmarkPosePairs, 3)
	case pose.StrategyLandmarkFace:
		drawDots(img, p.Points, 1)
	case pose.StrategyLandmarkHand:
		drawSkeleton(img, p.Points, landmarkHandPairs, 2)
	}
}

func drawSkeleton(img *gocv.Mat, kps []*pose.Keypoint, pairs [][2]int, radius int) {
	for _, pair := range pairs {
		a := at(kps, pair[0])
		b := at(kps, pair[1])
		if a == nil || b == nil {
			continue
		}
		gocv.Line(img, pt(a), pt(b), boneColor, 2)
	}
	for _, kp := range kps {
		if kp != nil {
			gocv.Circle(img, pt(kp), radius, jointColor, -1)
		}
	}
}

func drawDots(img *gocv.Mat, kps []*pose.Keypoint, radius int) {
	for _, kp := range kps {
		if kp != nil {
			gocv.Circle(img, pt(kp), radius, dotColor, -1)
		}
	}
}

func at(kps []*pose.Keypoint, i int) *pose.Keypoint {
	if i < 0 || i >= len(kps) {
		return nil
	}
	return kps[i]
}

func pt(kp *pose.Keypoint) image.Point {
	return image.Pt(int(kp.X), int(kp.Y))
}
