// Package subclip writes one cropped, background-suppressed clip per
// (object, box segment) pair for the pose backends to consume.
package subclip

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/your-org/vmask/internal/mask"
	"github.com/your-org/vmask/internal/track"
	"github.com/your-org/vmask/internal/video"
)

// Clip describes one written sub-clip.
type Clip struct {
	ObjectID   int
	StartFrame int
	Path       string
	Box        track.Box
}

// FileName encodes the (object, segment start) pair the aggregator
// recovers later.
func FileName(objectID, startFrame int) string {
	return fmt.Sprintf("object_%d_frame_%d.mp4", objectID, startFrame)
}

// ParseFileName recovers the (object, segment start) pair from a
// sub-clip file name.
func ParseFileName(name string) (objectID, startFrame int, err error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) != 4 || parts[0] != "object" || parts[2] != "frame" {
		return 0, 0, fmt.Errorf("malformed sub-clip name %q", name)
	}
	objectID, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed sub-clip name %q: %w", name, err)
	}
	startFrame, err = strconv.Atoi(parts[3])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed sub-clip name %q: %w", name, err)
	}
	return objectID, startFrame, nil
}

// Extractor writes sub-clips under a per-job directory. The directory
// is created lazily on the first clip and removed by the coordinator
// once aggregation finishes.
type Extractor struct {
	dir string
}

func NewExtractor(dir string) *Extractor {
	return &Extractor{dir: dir}
}

// Extract emits one clip per (object, segment). The clip frame size
// equals the segment's refined box; frames with an empty mask are
// written fully black so the backend sees a frame at every timestamp.
func (e *Extractor) Extract(ctx context.Context, r *video.Reader, store *mask.Store, refined map[int]*track.History) ([]Clip, error) {
	var clips []Clip

	objectIDs := make([]int, 0, len(refined))
	for id := range refined {
		objectIDs = append(objectIDs, id)
	}
	sort.Ints(objectIDs)

	frame := gocv.NewMat()
	defer frame.Close()

	for _, objectID := range objectIDs {
		for _, seg := range refined[objectID].Segments(r.FrameCount) {
			if err := ctx.Err(); err != nil {
				return clips, err
			}
			clip, err := e.writeSegment(ctx, r, store, objectID, seg, &frame)
			if err != nil {
				return clips, fmt.Errorf("sub-clip object %d frame %d: %w", objectID, seg.Start, err)
			}
			clips = append(clips, clip)
		}
	}
	return clips, nil
}

func (e *Extractor) writeSegment(ctx context.Context, r *video.Reader, store *mask.Store, objectID int, seg track.Segment, frame *gocv.Mat) (Clip, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return Clip{}, fmt.Errorf("create sub-clip dir: %w", err)
	}

	path := filepath.Join(e.dir, FileName(objectID, seg.Start))
	w := seg.Box.Width()
	h := seg.Box.Height()

	out, err := video.NewWriter(path, r.FPS, w, h)
	if err != nil {
		return Clip{}, err
	}
	defer out.Close()

	if err := r.Seek(seg.Start); err != nil {
		return Clip{}, err
	}

	for i := seg.Start; i < seg.End; i++ {
		if err := ctx.Err(); err != nil {
			return Clip{}, err
		}
		if !r.Read(frame) {
			break
		}

		m := store.At(i, objectID)
		cropped := suppressBackground(*frame, m, seg.Box)
		err := out.Write(cropped)
		cropped.Close()
		if err != nil {
			return Clip{}, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	return Clip{ObjectID: objectID, StartFrame: seg.Start, Path: path, Box: seg.Box}, nil
}

// suppressBackground crops the frame to the segment box and paints
// everything outside the object's mask black, keeping a thin band
// along the mask contour (1% of the crop width) so the subject's
// outline survives codec blur. An empty mask yields an all-black
// frame.
func suppressBackground(frame gocv.Mat, m mask.Mask, b track.Box) gocv.Mat {
	w := b.Width()
	h := b.Height()

	out := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	zero := gocv.NewScalar(0, 0, 0, 0)
	out.SetTo(zero)

	if m.Empty() {
		return out
	}

	region := frame.Region(image.Rect(b[0], b[1], b[2], b[3]))
	defer region.Close()

	cropped := m.Crop(b[0], b[1], b[2], b[3])
	keep := maskToMat(cropped)
	defer keep.Close()

	contours := gocv.FindContours(keep, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	band := int(math.Round(float64(w) / 100))
	if band < 1 {
		band = 1
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.DrawContours(&keep, contours, -1, white, band)

	region.CopyToWithMask(&out, keep)
	return out
}

// maskToMat converts a binary mask to an 8UC1 Mat with 255 for set
// pixels.
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
