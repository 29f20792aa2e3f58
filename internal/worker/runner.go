// Package worker runs masking jobs consumed from the queue: it stages
// videos, drives the masker and reports status, progress and
// cancellation.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/vmask/internal/masker"
	"github.com/your-org/vmask/internal/models"
	"github.com/your-org/vmask/internal/observability"
	"github.com/your-org/vmask/internal/queue"
	"github.com/your-org/vmask/internal/storage"
)

// Runner tracks the jobs this worker is processing so control commands
// can cancel them.
type Runner struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
	newCore  func(subclipDir string) *masker.Masker
	workDir  string

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
}

// NewRunner builds a runner. newCore constructs a masker bound to a
// per-job sub-clip directory.
func NewRunner(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer, workDir string, newCore func(subclipDir string) *masker.Masker) *Runner {
	return &Runner{
		db:       db,
		minio:    minio,
		producer: producer,
		newCore:  newCore,
		workDir:  workDir,
		active:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// HandleControl processes a raw control message (cancel commands).
func (r *Runner) HandleControl(data []byte) {
	var cmd models.ControlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		slog.Error("unmarshal control command", "error", err)
		return
	}
	if cmd.Action != "cancel" {
		slog.Warn("unknown control action", "action", cmd.Action)
		return
	}

	r.mu.Lock()
	cancel, ok := r.active[cmd.JobID]
	r.mu.Unlock()
	if ok {
		slog.Info("cancelling job", "job_id", cmd.JobID)
		cancel()
	}
}

// Process runs one job task to completion. It is the queue consumer
// handler; a returned error naks the message for redelivery, so
// terminal failures are absorbed here after the job row is updated.
func (r *Runner) Process(ctx context.Context, task models.JobTask) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.active[task.JobID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, task.JobID)
		r.mu.Unlock()
	}()

	observability.ActiveJobs.Inc()
	defer observability.ActiveJobs.Dec()

	start := time.Now()
	err := r.runJob(jobCtx, task)
	observability.JobDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		r.finish(task.JobID, models.JobStatusFinished, "")
		observability.JobsProcessed.WithLabelValues("finished").Inc()
	case errors.Is(err, context.Canceled):
		r.finish(task.JobID, models.JobStatusCanceled, "")
		observability.JobsProcessed.WithLabelValues("canceled").Inc()
	default:
		slog.Error("job failed", "job_id", task.JobID, "error", err)
		r.finish(task.JobID, models.JobStatusFailed, err.Error())
		observability.JobsProcessed.WithLabelValues("failed").Inc()
	}

	return nil
}

func (r *Runner) runJob(ctx context.Context, task models.JobTask) error {
	job, err := r.db.GetJob(ctx, task.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", task.JobID)
	}

	r.setStatus(task.JobID, models.JobStatusRunning, "")

	jobDir := filepath.Join(r.workDir, "jobs", task.JobID.String())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}
	defer os.RemoveAll(jobDir)

	inputPath := filepath.Join(jobDir, "input.mp4")
	outputPath := filepath.Join(jobDir, "output.mp4")

	if err := r.minio.GetToFile(ctx, task.InputKey, inputPath); err != nil {
		return err
	}

	core := r.newCore(filepath.Join(jobDir, "subclips"))
	lastReported := -1
	core.Progress = func(percent int) {
		// Publish at most every 5% to keep the event stream small.
		if percent < lastReported+5 && percent != 100 {
			return
		}
		lastReported = percent
		r.reportProgress(task.JobID, percent)
	}

	if err := core.Run(ctx, inputPath, outputPath, job.Spec); err != nil {
		return err
	}

	if err := r.minio.PutFile(ctx, task.OutputKey, outputPath, "video/mp4"); err != nil {
		return err
	}
	return nil
}

func (r *Runner) reportProgress(jobID uuid.UUID, percent int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.db.UpdateJobProgress(ctx, jobID, percent); err != nil {
		slog.Warn("update job progress", "job_id", jobID, "error", err)
	}
	event := models.JobEvent{JobID: jobID, Type: "progress", Progress: percent}
	if err := r.producer.PublishEvent(ctx, jobID.String(), event); err != nil {
		slog.Warn("publish progress event", "job_id", jobID, "error", err)
	}
}

func (r *Runner) setStatus(jobID uuid.UUID, status models.JobStatus, errorMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.db.UpdateJobStatus(ctx, jobID, status, errorMessage); err != nil {
		slog.Warn("update job status", "job_id", jobID, "error", err)
	}
	event := models.JobEvent{JobID: jobID, Type: "status", Status: status, Error: errorMessage}
	if err := r.producer.PublishEvent(ctx, jobID.String(), event); err != nil {
		slog.Warn("publish status event", "job_id", jobID, "error", err)
	}
}

// finish uses a background context so terminal states are recorded
// even when the job context is already cancelled.
func (r *Runner) finish(jobID uuid.UUID, status models.JobStatus, errorMessage string) {
	r.setStatus(jobID, status, errorMessage)
	slog.Info("job done", "job_id", jobID, "status", status)
}
