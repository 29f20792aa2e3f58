package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/vmask/internal/segment"
)

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
)

// MaskingSpec is the per-job masking request: one prompt point list and
// one overlay strategy per object, in object-id order.
type MaskingSpec struct {
	PosePrompts       [][]segment.PromptPoint `json:"posePrompts"`
	OverlayStrategies []string                `json:"overlayStrategies"`
}

// Job is one video anonymization job.
type Job struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	InputKey  string      `json:"input_key" db:"input_key"`
	OutputKey string      `json:"output_key" db:"output_key"`
	Spec      MaskingSpec `json:"spec" db:"spec"`
	Status    JobStatus   `json:"status" db:"status"`
	Progress  int         `json:"progress" db:"progress"`
	Error     string      `json:"error,omitempty" db:"error_message"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// JobTask is the message published to NATS for worker processing.
type JobTask struct {
	JobID     uuid.UUID `json:"job_id"`
	InputKey  string    `json:"input_key"`
	OutputKey string    `json:"output_key"`
}

// JobEvent is the progress/status message published by the worker and
// broadcast to WebSocket clients.
type JobEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	Type     string    `json:"type"` // progress, status
	Status   JobStatus `json:"status,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ControlCommand is the raw-NATS control message for cancelling a
// running job.
type ControlCommand struct {
	Action string    `json:"action"` // cancel
	JobID  uuid.UUID `json:"job_id"`
}
