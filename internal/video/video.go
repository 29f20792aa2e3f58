// Package video wraps OpenCV capture and writing for the masking
// pipeline. Frames are handled in BGR, the format OpenCV decodes to.
package video

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceOpenFailed means the input video could not be opened.
	ErrSourceOpenFailed = errors.New("video source open failed")
	// ErrSeekOutOfRange means a seek past the last frame was requested.
	ErrSeekOutOfRange = errors.New("seek out of range")
)

const fourcc = "mp4v"

// Reader reads BGR frames sequentially from a video file.
type Reader struct {
	cap        *gocv.VideoCapture
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// OpenReader opens the file and reads its metadata.
func OpenReader(path string) (*Reader, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceOpenFailed, path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceOpenFailed, path)
	}
	return &Reader{
		cap:        cap,
		Width:      int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        cap.Get(gocv.VideoCaptureFPS),
		FrameCount: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

// Read decodes the next frame into m. Returns false at end of stream.
func (r *Reader) Read(m *gocv.Mat) bool {
	return r.cap.Read(m) && !m.Empty()
}

// Seek positions the reader so the next Read returns the given frame.
func (r *Reader) Seek(frame int) error {
	if frame < 0 || frame >= r.FrameCount {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.FrameCount)
	}
	r.cap.Set(gocv.VideoCapturePosFrames, float64(frame))
	return nil
}

// TimestampMS returns the presentation timestamp of the next frame in
// milliseconds.
func (r *Reader) TimestampMS() int64 {
	return int64(r.cap.Get(gocv.VideoCapturePosMsec))
}

// Close releases the capture.
func (r *Reader) Close() error {
	return r.cap.Close()
}

// Writer writes BGR frames to an mp4v file.
type Writer struct {
	w *gocv.VideoWriter
}

// NewWriter opens a writer with the source's fps and frame size.
func NewWriter(path string, fps float64, width, height int) (*Writer, error) {
	w, err := gocv.VideoWriterFile(path, fourcc, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	return &Writer{w: w}, nil
}

// Write appends one frame.
func (w *Writer) Write(m gocv.Mat) error {
	return w.w.Write(m)
}

// Close flushes and releases the writer. Safe to call on every exit
// path; the underlying writer tolerates repeated release.
func (w *Writer) Close() error {
	return w.w.Close()
}
