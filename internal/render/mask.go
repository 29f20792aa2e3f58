// Package render draws mask fills, pose overlays and debug boxes onto
// RGB frames.
package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/your-org/vmask/internal/mask"
	"github.com/your-org/vmask/internal/track"
)

// MaskStyle configures the transparent-fill overlay. Level runs 0-10;
// the fill alpha is Level/10.
type MaskStyle struct {
	Level         int
	ObjectBorders bool
}

// DefaultMaskStyle matches the production overlay: 30% fill with
// borders.
var DefaultMaskStyle = MaskStyle{Level: 3, ObjectBorders: true}

// OverlayMask blends the object's color over its mask region of the
// RGB frame and optionally traces the external contours.
func OverlayMask(img *gocv.Mat, m mask.Mask, objectID int, style MaskStyle) {
	if m.Empty() {
		return
	}

	alpha := float64(style.Level) / 10
	c := ObjectColor(objectID)

	maskMat := maskToMat(m)
	defer maskMat.Close()

	colored := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.R), float64(c.G), float64(c.B), 0),
		img.Rows(), img.Cols(), gocv.MatTypeCV8UC3)
	defer colored.Close()

	overlay := img.Clone()
	defer overlay.Close()
	colored.CopyToWithMask(&overlay, maskMat)

	gocv.AddWeighted(*img, 1-alpha, overlay, alpha, 0, img)

	if style.ObjectBorders {
		contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		defer contours.Close()
		gocv.DrawContours(img, contours, -1, c, 2)
	}
}

// DrawBox traces a box outline, used for the coalesced/refined debug
// overlays.
func DrawBox(img *gocv.Mat, b track.Box, c color.RGBA) {
	gocv.Rectangle(img, image.Rect(b[0], b[1], b[2], b[3]), c, 2)
}

func maskToMat(m mask.Mask) gocv.Mat {
	out := gocv.NewMatWithSize(m.H, m.W, gocv.MatTypeCV8UC1)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.At(x, y) {
				out.SetUCharAt(y, x, 255)
			}
		}
	}
	return out
}
