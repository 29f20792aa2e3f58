package render

import "image/color"

// palette holds the per-object overlay colors (RGB). Object identity
// selects the same color on every frame and every run.
var palette = []color.RGBA{
	{R: 230, G: 57, B: 70, A: 255},
	{R: 69, G: 123, B: 157, A: 255},
	{R: 42, G: 157, B: 143, A: 255},
	{R: 244, G: 162, B: 97, A: 255},
	{R: 131, G: 56, B: 236, A: 255},
	{R: 255, G: 183, B: 3, A: 255},
	{R: 6, G: 214, B: 160, A: 255},
	{R: 239, G: 71, B: 111, A: 255},
}

// ObjectColor returns the deterministic overlay color for an object id
// (1-based).
func ObjectColor(objectID int) color.RGBA {
	return palette[(objectID-1)%len(palette)]
}
