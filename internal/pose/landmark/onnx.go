package landmark

import (
	"fmt"
	"image"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputSize = 256
	// fields per landmark in the model output: x, y, z, visibility,
	// presence
	landmarkStride = 5
)

// ONNXLandmarker runs a landmark model with ONNX Runtime. One instance
// owns one session and its tensors and must not be used concurrently.
type ONNXLandmarker struct {
	kind          Kind
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	pointsTensor  *ort.Tensor[float32]
	scoreTensor   *ort.Tensor[float32]
	minConfidence float32
	lastTimestamp int64
}

// NewONNXLandmarker loads the model for the given kind from modelsDir.
// opts may be nil for ORT defaults.
func NewONNXLandmarker(kind Kind, modelsDir string, minConfidence float32, opts *ort.SessionOptions) (*ONNXLandmarker, error) {
	count := kind.pointCount()
	if count == 0 {
		return nil, fmt.Errorf("unsupported landmarker kind %q", kind)
	}
	modelPath := filepath.Join(modelsDir, kind.modelFile())

	inputShape := ort.NewShape(1, 3, inputSize, inputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	pointsTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(count*landmarkStride)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create landmarks tensor: %w", err)
	}

	scoreTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		pointsTensor.Destroy()
		return nil, fmt.Errorf("create score tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"landmarks", "score"},
		[]ort.Value{inputTensor},
		[]ort.Value{pointsTensor, scoreTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		pointsTensor.Destroy()
		scoreTensor.Destroy()
		return nil, fmt.Errorf("create %s landmarker session: %w", kind, err)
	}

	return &ONNXLandmarker{
		kind:          kind,
		session:       session,
		inputTensor:   inputTensor,
		pointsTensor:  pointsTensor,
		scoreTensor:   scoreTensor,
		minConfidence: minConfidence,
		lastTimestamp: -1,
	}, nil
}

// DetectForVideo runs the model on one frame. A score below the
// configured confidence yields no detection.
func (l *ONNXLandmarker) DetectForVideo(img image.Image, timestampMS int64) ([][]Point, error) {
	if timestampMS <= l.lastTimestamp {
		return nil, fmt.Errorf("%s landmarker: timestamp %d not after %d", l.kind, timestampMS, l.lastTimestamp)
	}
	l.lastTimestamp = timestampMS

	preprocess(img, l.inputTensor.GetData())

	if err := l.session.Run(); err != nil {
		return nil, fmt.Errorf("run %s landmarker: %w", l.kind, err)
	}

	if l.scoreTensor.GetData()[0] < l.minConfidence {
		return nil, nil
	}

	raw := l.pointsTensor.GetData()
	count := l.kind.pointCount()
	points := make([]Point, count)
	for i := 0; i < count; i++ {
		off := i * landmarkStride
		points[i] = Point{
			X:          float64(raw[off]),
			Y:          float64(raw[off+1]),
			Z:          float64(raw[off+2]),
			Visibility: float64(raw[off+3]),
		}
	}
	return [][]Point{points}, nil
}

// Reset clears the timestamp monotonicity state between clips.
func (l *ONNXLandmarker) Reset() {
	l.lastTimestamp = -1
}

// Close destroys the session and tensors.
func (l *ONNXLandmarker) Close() error {
	l.session.Destroy()
	l.inputTensor.Destroy()
	l.pointsTensor.Destroy()
	l.scoreTensor.Destroy()
	return nil
}

// preprocess resizes img to the model input with nearest-neighbour
// sampling and writes CHW float32 scaled to [0, 1]. The RGBA fast path
// covers frames decoded by the video reader.
func preprocess(img image.Image, dst []float32) {
	planeSize := inputSize * inputSize

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	minX := bounds.Min.X
	minY := bounds.Min.Y

	if src, ok := img.(*image.RGBA); ok {
		for y := 0; y < inputSize; y++ {
			srcY := minY + y*srcH/inputSize
			for x := 0; x < inputSize; x++ {
				srcX := minX + x*srcW/inputSize
				off := src.PixOffset(srcX, srcY)
				pix := src.Pix[off : off+3 : off+3]
				idx := y*inputSize + x
				dst[idx] = float32(pix[0]) / 255
				dst[planeSize+idx] = float32(pix[1]) / 255
				dst[2*planeSize+idx] = float32(pix[2]) / 255
			}
		}
		return
	}

	for y := 0; y < inputSize; y++ {
		srcY := minY + y*srcH/inputSize
		for x := 0; x < inputSize; x++ {
			srcX := minX + x*srcW/inputSize
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := y*inputSize + x
			dst[idx] = float32(r>>8) / 255
			dst[planeSize+idx] = float32(g>>8) / 255
			dst[2*planeSize+idx] = float32(b>>8) / 255
		}
	}
}
