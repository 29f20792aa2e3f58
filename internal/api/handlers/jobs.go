package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/vmask/internal/ingest"
	"github.com/your-org/vmask/internal/models"
	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/queue"
	"github.com/your-org/vmask/internal/segment"
	"github.com/your-org/vmask/internal/storage"
	"github.com/your-org/vmask/pkg/dto"
)

type JobHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer

	// MaxVideoDuration bounds accepted uploads; zero disables the check.
	MaxVideoDuration time.Duration
}

func NewJobHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *JobHandler {
	return &JobHandler{db: db, minio: minio, producer: producer}
}

// Create accepts a multipart upload: "video" (the file) and "spec"
// (JSON with posePrompts and overlayStrategies). The video is staged
// to disk for probing, uploaded to MinIO and the job enqueued.
func (h *JobHandler) Create(c *gin.Context) {
	specField := c.PostForm("spec")
	if specField == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing spec field"})
		return
	}

	var specReq dto.CreateJobSpec
	if err := json.Unmarshal([]byte(specField), &specReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid spec: %v", err)})
		return
	}
	if len(specReq.PosePrompts) == 0 || len(specReq.PosePrompts) != len(specReq.OverlayStrategies) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "posePrompts and overlayStrategies must be non-empty and of equal length"})
		return
	}
	if _, err := pose.ParseStrategies(specReq.OverlayStrategies); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing video file"})
		return
	}

	tmp, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	probe, err := ingest.Probe(c.Request.Context(), tmpPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unreadable video: %v", err)})
		return
	}
	if h.MaxVideoDuration > 0 && probe.Duration > h.MaxVideoDuration {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("video longer than %s", h.MaxVideoDuration)})
		return
	}

	job := &models.Job{
		ID:     uuid.New(),
		Status: models.JobStatusPending,
		Spec: models.MaskingSpec{
			PosePrompts:       toPromptPoints(specReq.PosePrompts),
			OverlayStrategies: specReq.OverlayStrategies,
		},
	}
	job.InputKey = fmt.Sprintf("jobs/%s/input.mp4", job.ID)
	job.OutputKey = fmt.Sprintf("jobs/%s/output.mp4", job.ID)

	ctx := c.Request.Context()
	if err := h.minio.PutFile(ctx, job.InputKey, tmpPath, "video/mp4"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.CreateJob(ctx, job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task := models.JobTask{JobID: job.ID, InputKey: job.InputKey, OutputKey: job.OutputKey}
	if err := h.producer.PublishJob(ctx, task); err != nil {
		_ = h.db.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, "enqueue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("job accepted", "job_id", job.ID, "objects", len(specReq.PosePrompts),
		"video", fmt.Sprintf("%dx%d", probe.Width, probe.Height))

	c.JSON(http.StatusCreated, jobToResponse(job))
}

func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.db.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.db.ListJobs(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.JobListResponse{Total: len(jobs), Jobs: make([]dto.JobResponse, 0, len(jobs))}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, jobToResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Result streams the finished output video from MinIO.
func (h *JobHandler) Result(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.db.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if job.Status != models.JobStatusFinished {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s", job.Status)})
		return
	}

	obj, size, err := h.minio.OpenObject(c.Request.Context(), job.OutputKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer obj.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mp4", job.ID))
	c.DataFromReader(http.StatusOK, size, "video/mp4", obj, nil)
}

// Cancel accepts a pending/running job and publishes a cancel command to
// the workers over the control subject. The job row is not changed here;
// only a worker currently processing the job acts on the command.
func (h *JobHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.db.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if job.Status != models.JobStatusPending && job.Status != models.JobStatusRunning {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s", job.Status)})
		return
	}

	cmd := models.ControlCommand{Action: "cancel", JobID: id}
	payload, _ := json.Marshal(cmd)
	if err := h.producer.PublishControl(payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "cancel requested"})
}

func toPromptPoints(raw [][][3]int) [][]segment.PromptPoint {
	out := make([][]segment.PromptPoint, len(raw))
	for i, points := range raw {
		out[i] = make([]segment.PromptPoint, len(points))
		for j, p := range points {
			out[i][j] = segment.PromptPoint(p)
		}
	}
	return out
}

func jobToResponse(job *models.Job) dto.JobResponse {
	return dto.JobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Spec:      job.Spec,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}
}
