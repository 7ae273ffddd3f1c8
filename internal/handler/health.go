package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/pkg/response"
)

// readyTimeout bounds a single storage ping.
const readyTimeout = 2 * time.Second

// Pinger reports whether the storage backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	storage Pinger
	started time.Time
}

func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage, started: time.Now()}
}

// Liveness never touches dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness pings storage; a handler without storage is always ready.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.storage == nil {
		response.Success(c, http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	start := time.Now()
	if err := h.storage.Ping(ctx); err != nil {
		response.Error(c, http.StatusServiceUnavailable, "Storage unavailable: "+err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"status":     "ready",
		"storage_ms": time.Since(start).Milliseconds(),
	})
}
