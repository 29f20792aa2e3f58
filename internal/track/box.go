package track

import "github.com/your-org/vmask/internal/mask"

// Box is an axis-aligned bounding box: x_min, y_min, x_max, y_max
// in full-frame pixel coordinates. Boxes from TightBox hold inclusive
// maxima; Width, Height and crops treat the max side as exclusive.
type Box [4]int

func (b Box) Width() int  { return b[2] - b[0] }
func (b Box) Height() int { return b[3] - b[1] }

// TightBox returns the inclusive bounding box of all set pixels in m.
// ok is false when the mask is empty.
func TightBox(m mask.Mask) (b Box, ok bool) {
	xMin, yMin := m.W, m.H
	xMax, yMax := -1, -1
	for y := 0; y < m.H; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x, p := range row {
			if p == 0 {
				continue
			}
			if x < xMin {
				xMin = x
			}
			if x > xMax {
				xMax = x
			}
			if y < yMin {
				yMin = y
			}
			yMax = y
		}
	}
	if xMax < 0 {
		return Box{}, false
	}
	return Box{xMin, yMin, xMax, yMax}, true
}

// IoU computes intersection-over-union of two boxes.
// Empty intersection and degenerate unions both yield 0.
func IoU(a, b Box) float64 {
	xLeft := max(a[0], b[0])
	yTop := max(a[1], b[1])
	xRight := min(a[2], b[2])
	yBottom := min(a[3], b[3])

	if xRight < xLeft || yBottom < yTop {
		return 0
	}
	intersection := float64(xRight-xLeft) * float64(yBottom-yTop)

	areaA := float64(a[2]-a[0]) * float64(a[3]-a[1])
	areaB := float64(b[2]-b[0]) * float64(b[3]-b[1])
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
