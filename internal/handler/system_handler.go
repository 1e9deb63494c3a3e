package handler

import (
	"context"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/response"
)

const (
	metricsInterval = 5 * time.Second
	healthTimeout   = 2 * time.Second
)

// SystemHandler reports liveness and streams worker queue depths.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Returns 503 when PostgreSQL or Redis does not answer.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := h.pool.Ping(ctx); err != nil {
		status["postgres"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
	}
	response.Success(c, code, status)
}

type systemMetrics struct {
	Timestamp  int64  `json:"timestamp"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`

	QueueAutosave  int64 `json:"queue_autosave"`
	QueueStart     int64 `json:"queue_start"`
	QueueViolation int64 `json:"queue_violation"`
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("metrics", h.collect(c.Request.Context()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ticker.C:
			c.SSEvent("metrics", h.collect(c.Request.Context()))
			return true
		}
	})
	h.log.Debug().Msg("Metrics stream closed")
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := systemMetrics{
		Timestamp:  time.Now().Unix(),
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
	}

	pipe := h.rdb.Pipeline()
	autosave := pipe.LLen(ctx, config.WorkerKey.PersistAutosaveQueue)
	start := pipe.LLen(ctx, config.WorkerKey.PersistStartQueue)
	violation := pipe.LLen(ctx, config.WorkerKey.PersistViolationQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read queue depths")
		return m
	}
	m.QueueAutosave = autosave.Val()
	m.QueueStart = start.Val()
	m.QueueViolation = violation.Val()
	return m
}
