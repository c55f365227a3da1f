package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/trackhound/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	scheduler *app.DownloadScheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(scheduler *app.DownloadScheduler) *HealthHandler {
	return &HealthHandler{
		scheduler: scheduler,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
	} `json:"queue"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Queue.Running = h.scheduler.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
