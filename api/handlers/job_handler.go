package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/trackhound/internal/app"
	"github.com/yourusername/trackhound/internal/domain"
)

// JobHandler handles job and history HTTP requests
type JobHandler struct {
	registry *app.Registry
	progress *app.ProgressAggregator
	history  domain.HistoryRepository
	logger   *zap.Logger
}

// NewJobHandler creates a new job handler. history may be nil when the
// archive is disabled.
func NewJobHandler(registry *app.Registry, progress *app.ProgressAggregator, history domain.HistoryRepository, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		registry: registry,
		progress: progress,
		history:  history,
		logger:   logger,
	}
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Jobs())
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.registry.Job(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJobItems handles GET /api/v1/jobs/:id/items
func (h *JobHandler) GetJobItems(c *gin.Context) {
	items, err := h.registry.Items(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetJobProgress handles GET /api/v1/jobs/:id/progress. The snapshot is
// derived from the current item states, never from cached counters.
func (h *JobHandler) GetJobProgress(c *gin.Context) {
	stats, err := h.progress.Snapshot(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("Failed to compute snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHistoryStats handles GET /api/v1/history/stats
func (h *JobHandler) GetHistoryStats(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get history stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListHistoryJobs handles GET /api/v1/history/jobs
func (h *JobHandler) ListHistoryJobs(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	jobs, err := h.history.FindJobs()
	if err != nil {
		h.logger.Error("Failed to list archived jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jobs)
}
