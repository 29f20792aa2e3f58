package track

import "math"

// Refine pads a raw box by 10% per side, clips it to the frame, and
// squares it by growing the shorter axis on both sides and clipping
// again. When that clip cuts the growth, the box is left non-square
// against the frame edge; the cut part is not moved to the other side.
func Refine(b Box, frameWidth, frameHeight int) Box {
	marginW := int(math.Round(0.1 * float64(b.Width())))
	marginH := int(math.Round(0.1 * float64(b.Height())))

	xMin := max(0, b[0]-marginW)
	yMin := max(0, b[1]-marginH)
	xMax := min(frameWidth, b[2]+marginW)
	yMax := min(frameHeight, b[3]+marginH)

	w := xMax - xMin
	h := yMax - yMin

	// Grow the shorter axis: floor of the difference on the min side,
	// ceil on the max side.
	if w > h {
		d := w - h
		yMin = max(0, yMin-d/2)
		yMax = min(frameHeight, yMax+(d-d/2))
	} else {
		d := h - w
		xMin = max(0, xMin-d/2)
		xMax = min(frameWidth, xMax+(d-d/2))
	}

	return Box{xMin, yMin, xMax, yMax}
}
