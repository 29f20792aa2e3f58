package dto

import (
	"github.com/google/uuid"

	"github.com/your-org/vmask/internal/models"
)

// CreateJobSpec is the JSON "spec" part of the multipart job upload.
type CreateJobSpec struct {
	PosePrompts       [][][3]int `json:"posePrompts" binding:"required"`
	OverlayStrategies []string   `json:"overlayStrategies" binding:"required"`
}

type JobResponse struct {
	ID        uuid.UUID          `json:"id"`
	Status    models.JobStatus   `json:"status"`
	Progress  int                `json:"progress"`
	Spec      models.MaskingSpec `json:"spec"`
	Error     string             `json:"error,omitempty"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int           `json:"total"`
}

// WSEvent is the message broadcast to WebSocket clients.
type WSEvent struct {
	Type     string           `json:"type"` // progress, status
	JobID    uuid.UUID        `json:"job_id"`
	Status   models.JobStatus `json:"status,omitempty"`
	Progress int              `json:"progress,omitempty"`
	Error    string           `json:"error,omitempty"`
}
