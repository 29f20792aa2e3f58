package mask

import "fmt"

// Mask is a per-frame binary segmentation mask. Pix is row-major,
// one byte per pixel, nonzero meaning the pixel belongs to the object.
type Mask struct {
	W   int
	H   int
	Pix []uint8
}

// New returns an all-zero mask of the given size.
func New(w, h int) Mask {
	return Mask{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At reports whether the pixel at (x, y) belongs to the object.
func (m Mask) At(x, y int) bool {
	return m.Pix[y*m.W+x] != 0
}

// Set marks the pixel at (x, y) as belonging to the object.
func (m Mask) Set(x, y int) {
	m.Pix[y*m.W+x] = 1
}

// Empty reports whether no pixel is set.
func (m Mask) Empty() bool {
	for _, p := range m.Pix {
		if p != 0 {
			return false
		}
	}
	return true
}

// Crop returns a copy of the region [x0,x1)×[y0,y1).
func (m Mask) Crop(x0, y0, x1, y1 int) Mask {
	out := New(x1-x0, y1-y0)
	for y := y0; y < y1; y++ {
		copy(out.Pix[(y-y0)*out.W:(y-y0+1)*out.W], m.Pix[y*m.W+x0:y*m.W+x1])
	}
	return out
}

// Store holds the per-frame per-object masks for one job.
// Frames are indexed from 0, objects from 1 (prompt order).
type Store struct {
	frameCount  int
	objectCount int
	width       int
	height      int
	masks       [][]Mask // [frame][object-1]
}

// NewStore builds a store from frame-major mask data. Every frame must
// carry the same number of objects.
func NewStore(width, height int, masks [][]Mask) (*Store, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("mask store: no frames")
	}
	objects := len(masks[0])
	for i, frame := range masks {
		if len(frame) != objects {
			return nil, fmt.Errorf("mask store: frame %d has %d objects, want %d", i, len(frame), objects)
		}
	}
	return &Store{
		frameCount:  len(masks),
		objectCount: objects,
		width:       width,
		height:      height,
		masks:       masks,
	}, nil
}

func (s *Store) FrameCount() int  { return s.frameCount }
func (s *Store) ObjectCount() int { return s.objectCount }
func (s *Store) Width() int       { return s.width }
func (s *Store) Height() int      { return s.height }

// At returns the mask for the given frame and object id (1-based).
func (s *Store) At(frame, objectID int) Mask {
	return s.masks[frame][objectID-1]
}
