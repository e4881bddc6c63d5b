package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	model *service.ModelInfo
	redis *redis.Client
}

// NewHealthHandler creates a new health handler. model is nil until a
// classifier has been loaded.
func NewHealthHandler(model *service.ModelInfo, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		model: model,
		redis: redis,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string             `json:"status"`
	Model      *service.ModelInfo `json:"model,omitempty"`
	Components map[string]string  `json:"components"`
}

// Health handles GET /health. The process is alive whenever it answers;
// a failing cache only degrades the status since classification bypasses it.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	status := "healthy"

	if h.model != nil {
		components["classifier"] = "ok"
	} else {
		components["classifier"] = "not loaded"
		status = "degraded"
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "error: " + err.Error()
			status = "degraded"
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "not configured"
	}

	c.JSON(http.StatusOK, HealthStatus{
		Status:     status,
		Model:      h.model,
		Components: components,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "classifier not loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
