package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/vmask/internal/config"
	"github.com/your-org/vmask/internal/masker"
	"github.com/your-org/vmask/internal/models"
	"github.com/your-org/vmask/internal/observability"
	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/pose/landmark"
	"github.com/your-org/vmask/internal/pose/openpose"
	"github.com/your-org/vmask/internal/queue"
	"github.com/your-org/vmask/internal/segment"
	"github.com/your-org/vmask/internal/storage"
	"github.com/your-org/vmask/internal/worker"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting masking worker",
		"workers", cfg.Masking.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime for the landmarker backends
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	backends, closeBackends, err := buildBackends(cfg.Masking)
	if err != nil {
		slog.Error("init pose backends", "error", err)
		os.Exit(1)
	}
	defer closeBackends()

	segmenter := segment.NewClient(cfg.Masking.SegmentURL, cfg.Masking.RequestTimeout, cfg.Masking.RetryAttempts)

	newCore := func(subclipDir string) *masker.Masker {
		return masker.New(segmenter, backends, masker.Config{
			IoUThreshold:        cfg.Masking.IoUThreshold,
			ConfidenceThreshold: cfg.Masking.ConfidenceThreshold,
			SubclipDir:          subclipDir,
			DebugBoxes:          cfg.Masking.DebugBoxes,
			MaskLevel:           cfg.Masking.MaskLevel,
			ObjectBorders:       cfg.Masking.ObjectBorders,
			SmoothingEnabled:    cfg.Masking.Smoothing,
		})
	}

	runner := worker.NewRunner(db, minioStore, producer, cfg.Masking.WorkDir, newCore)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	controlSub, err := consumer.SubscribeControl(runner.HandleControl)
	if err != nil {
		slog.Error("subscribe control subject", "error", err)
		os.Exit(1)
	}
	defer controlSub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeJobs(ctx, "masking-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.JobTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal job task", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		// Long jobs outlive the ack wait; keep the message alive.
		stop := keepAlive(ctx, msg)
		defer stop()

		return runner.Process(ctx, task)
	}, cfg.Masking.WorkerCount)
	if err != nil {
		slog.Error("start job consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

// buildBackends constructs the strategy dispatch table: remote
// openpose plus the three local ONNX landmarkers.
func buildBackends(cfg config.MaskingConfig) (map[pose.Strategy]pose.Backend, func(), error) {
	var landmarkers []*landmark.ONNXLandmarker
	closeAll := func() {
		for _, lm := range landmarkers {
			lm.Close()
		}
	}

	backends := map[pose.Strategy]pose.Backend{
		pose.StrategyOpenpose: openpose.NewClient(cfg.OpenposeURL, cfg.RequestTimeout, cfg.RetryAttempts),
	}

	kinds := map[pose.Strategy]landmark.Kind{
		pose.StrategyLandmarkPose: landmark.KindPose,
		pose.StrategyLandmarkFace: landmark.KindFace,
		pose.StrategyLandmarkHand: landmark.KindHand,
	}
	for strategy, kind := range kinds {
		lm, err := landmark.NewONNXLandmarker(kind, cfg.ModelsDir, float32(cfg.DetectionThreshold), nil)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("load %s landmarker: %w", kind, err)
		}
		landmarkers = append(landmarkers, lm)
		backends[strategy] = landmark.NewBackend(lm, strategy)
	}

	return backends, closeAll, nil
}

// keepAlive extends the message's ack deadline while the job runs.
func keepAlive(ctx context.Context, msg jetstream.Msg) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = msg.InProgress()
			}
		}
	}()
	return func() { close(done) }
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
