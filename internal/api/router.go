package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/vmask/internal/api/handlers"
	"github.com/your-org/vmask/internal/api/ws"
	"github.com/your-org/vmask/internal/auth"
	"github.com/your-org/vmask/internal/queue"
	"github.com/your-org/vmask/internal/storage"
)

type RouterConfig struct {
	APIKey           string
	DB               *storage.PostgresStore
	MinIO            *storage.MinIOStore
	Producer         *queue.Producer
	Hub              *ws.Hub
	MaxVideoDuration time.Duration
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Jobs
	jobH := handlers.NewJobHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	jobH.MaxVideoDuration = cfg.MaxVideoDuration
	v1.POST("/jobs", jobH.Create)
	v1.GET("/jobs", jobH.List)
	v1.GET("/jobs/:id", jobH.Get)
	v1.GET("/jobs/:id/result", jobH.Result)
	v1.POST("/jobs/:id/cancel", jobH.Cancel)

	return r
}
