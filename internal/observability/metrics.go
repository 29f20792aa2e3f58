package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vmask",
		Name:      "jobs_processed_total",
		Help:      "Total number of masking jobs processed, by final status",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vmask",
		Name:      "job_duration_seconds",
		Help:      "Wall time of a full masking job",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vmask",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	FramesComposited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vmask",
		Name:      "frames_composited_total",
		Help:      "Total number of output frames written",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vmask",
		Name:      "queue_depth",
		Help:      "Number of pending job tasks in queue",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vmask",
		Name:      "active_jobs",
		Help:      "Number of jobs currently being processed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vmask",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vmask",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
