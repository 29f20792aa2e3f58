// Package masker runs one anonymization job end to end: segmentation,
// box coalescing, sub-clip extraction, pose aggregation, reprojection,
// smoothing and final compositing.
package masker

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"time"

	"gocv.io/x/gocv"

	"github.com/your-org/vmask/internal/mask"
	"github.com/your-org/vmask/internal/models"
	"github.com/your-org/vmask/internal/observability"
	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/render"
	"github.com/your-org/vmask/internal/segment"
	"github.com/your-org/vmask/internal/subclip"
	"github.com/your-org/vmask/internal/track"
	"github.com/your-org/vmask/internal/video"
)

// ErrEmptyMaskSequence means the segmentation service never detected
// any object. The job still completes; the output equals the input.
var ErrEmptyMaskSequence = errors.New("no object detected in any frame")

// Config carries the tunables of the core pipeline.
type Config struct {
	IoUThreshold        float64
	ConfidenceThreshold float64
	SubclipDir          string
	DebugBoxes          bool
	MaskLevel           int
	ObjectBorders       bool
	SmoothingEnabled    bool
}

// Segmenter is the external segmentation service.
type Segmenter interface {
	SegmentVideo(ctx context.Context, prompts [][]segment.PromptPoint, videoContent []byte) (*mask.Store, error)
}

// Masker coordinates one job at a time. It owns every intermediate
// structure for the duration of a Run call and cleans up the sub-clip
// directory and, on failure, the partial output.
type Masker struct {
	segmenter Segmenter
	backends  map[pose.Strategy]pose.Backend
	cfg       Config

	// Progress receives the percentage of composed frames. Optional.
	Progress func(percent int)
}

func New(segmenter Segmenter, backends map[pose.Strategy]pose.Backend, cfg Config) *Masker {
	return &Masker{segmenter: segmenter, backends: backends, cfg: cfg}
}

// Run masks inputPath into outputPath according to spec. Cancellation
// is honored at frame boundaries and after each external call; on
// cancellation or error the partial output and the sub-clip directory
// are removed.
func (m *Masker) Run(ctx context.Context, inputPath, outputPath string, spec models.MaskingSpec) error {
	strategies, err := pose.ParseStrategies(spec.OverlayStrategies)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input video: %w", err)
	}

	start := time.Now()
	store, err := m.segmenter.SegmentVideo(ctx, spec.PosePrompts, content)
	content = nil
	if err != nil {
		return fmt.Errorf("segment video: %w", err)
	}
	observability.StageDuration.WithLabelValues("segment").Observe(time.Since(start).Seconds())
	if err := ctx.Err(); err != nil {
		return err
	}

	reader, err := video.OpenReader(inputPath)
	if err != nil {
		return err
	}
	frameCount := reader.FrameCount
	frameWidth := reader.Width
	frameHeight := reader.Height
	fps := reader.FPS

	start = time.Now()
	coalesced := track.Coalesce(store, m.cfg.IoUThreshold)
	observability.StageDuration.WithLabelValues("coalesce").Observe(time.Since(start).Seconds())

	if len(coalesced) == 0 {
		reader.Close()
		slog.Warn("job produced no detections, copying input through", "error", ErrEmptyMaskSequence)
		return m.copyThrough(ctx, inputPath, outputPath)
	}

	refined := make(map[int]*track.History, len(coalesced))
	for objectID, h := range coalesced {
		refined[objectID] = h.Map(func(b track.Box) track.Box {
			return track.Refine(b, frameWidth, frameHeight)
		})
	}

	// Sub-clips live only between extraction and the end of
	// aggregation, but the directory must also go on early exits.
	defer os.RemoveAll(m.cfg.SubclipDir)

	start = time.Now()
	extractor := subclip.NewExtractor(m.cfg.SubclipDir)
	clips, err := extractor.Extract(ctx, reader, store, refined)
	reader.Close()
	if err != nil {
		return fmt.Errorf("extract sub-clips: %w", err)
	}
	observability.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	start = time.Now()
	aggregator := pose.NewAggregator(m.backends)
	tracks, err := aggregator.Aggregate(ctx, clips, strategies, frameCount)
	if err != nil {
		return fmt.Errorf("aggregate poses: %w", err)
	}
	observability.StageDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	os.RemoveAll(m.cfg.SubclipDir)

	for objectID, tr := range tracks {
		strategy := strategies[objectID-1]
		pose.Reproject(tr, strategy, refined[objectID], m.cfg.ConfidenceThreshold)
		if m.cfg.SmoothingEnabled && strategy == pose.StrategyLandmarkPose {
			pose.Smooth(tr, fps, fps/pose.LandmarkPoseCutoffDivisor)
		}
	}

	start = time.Now()
	if err := m.composite(ctx, inputPath, outputPath, store, coalesced, refined, tracks); err != nil {
		os.Remove(outputPath)
		return err
	}
	observability.StageDuration.WithLabelValues("composite").Observe(time.Since(start).Seconds())
	return nil
}

// composite opens the input a second time and renders masks, debug
// boxes and pose overlays onto every frame in stream order.
func (m *Masker) composite(ctx context.Context, inputPath, outputPath string, store *mask.Store, coalesced, refined map[int]*track.History, tracks map[int]pose.Track) error {
	reader, err := video.OpenReader(inputPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := video.NewWriter(outputPath, reader.FPS, reader.Width, reader.Height)
	if err != nil {
		return err
	}
	defer writer.Close()

	style := render.MaskStyle{Level: m.cfg.MaskLevel, ObjectBorders: m.cfg.ObjectBorders}

	frame := gocv.NewMat()
	defer frame.Close()
	rgb := gocv.NewMat()
	defer rgb.Close()

	idx := 0
	for reader.Read(&frame) {
		if err := ctx.Err(); err != nil {
			return err
		}

		gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB)

		if idx < store.FrameCount() {
			for objectID := 1; objectID <= store.ObjectCount(); objectID++ {
				render.OverlayMask(&rgb, store.At(idx, objectID), objectID, style)
			}
		}

		if m.cfg.DebugBoxes {
			drawDebugBoxes(&rgb, coalesced, idx, debugCoalescedColor)
			drawDebugBoxes(&rgb, refined, idx, debugRefinedColor)
		}

		for _, tr := range tracks {
			if idx < len(tr) {
				render.DrawPose(&rgb, tr[idx])
			}
		}

		gocv.CvtColor(rgb, &frame, gocv.ColorRGBToBGR)
		if err := writer.Write(frame); err != nil {
			return fmt.Errorf("write frame %d: %w", idx, err)
		}

		idx++
		observability.FramesComposited.Inc()
		if m.Progress != nil && reader.FrameCount > 0 {
			m.Progress(idx * 100 / reader.FrameCount)
		}
	}
	return nil
}

// Debug overlay colors: coalesced boxes white, refined boxes green.
var (
	debugCoalescedColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	debugRefinedColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

func drawDebugBoxes(img *gocv.Mat, histories map[int]*track.History, frame int, c color.RGBA) {
	for _, h := range histories {
		if b, ok := h.Floor(frame); ok {
			render.DrawBox(img, b, c)
		}
	}
}

// copyThrough writes the input frames unchanged, for jobs where no
// object was ever detected.
func (m *Masker) copyThrough(ctx context.Context, inputPath, outputPath string) error {
	reader, err := video.OpenReader(inputPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := video.NewWriter(outputPath, reader.FPS, reader.Width, reader.Height)
	if err != nil {
		return err
	}
	defer writer.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	idx := 0
	for reader.Read(&frame) {
		if err := ctx.Err(); err != nil {
			os.Remove(outputPath)
			return err
		}
		if err := writer.Write(frame); err != nil {
			os.Remove(outputPath)
			return fmt.Errorf("write frame %d: %w", idx, err)
		}
		idx++
		if m.Progress != nil && reader.FrameCount > 0 {
			m.Progress(idx * 100 / reader.FrameCount)
		}
	}
	return nil
}
