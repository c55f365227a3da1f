package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/trackhound/internal/app"
	"github.com/yourusername/trackhound/internal/domain"
)

// BatchHandler handles search batch HTTP requests
type BatchHandler struct {
	orchestrator *app.SearchOrchestrator
	scheduler    *app.DownloadScheduler
	logger       *zap.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(orchestrator *app.SearchOrchestrator, scheduler *app.DownloadScheduler, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		orchestrator: orchestrator,
		scheduler:    scheduler,
		logger:       logger,
	}
}

// TrackRequestBody is one requested track in a batch
type TrackRequestBody struct {
	Artist         string `json:"artist"`
	Title          string `json:"title" binding:"required"`
	Album          string `json:"album,omitempty"`
	ExpectedLength int    `json:"expected_length,omitempty"`
}

// RunBatchRequest represents a request to run a search batch
type RunBatchRequest struct {
	SourceLabel string             `json:"source_label,omitempty"`
	Enqueue     bool               `json:"enqueue,omitempty"` // also enqueue matches for download
	Requests    []TrackRequestBody `json:"requests" binding:"required,min=1"`
}

// RunBatchResponse summarizes a finished batch run
type RunBatchResponse struct {
	Batch *app.BatchResult `json:"batch"`
	JobID string           `json:"job_id,omitempty"`
}

// RunBatch handles POST /api/v1/batches. The batch runs synchronously;
// clients wanting live progress subscribe to the events stream.
func (h *BatchHandler) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requests := make([]domain.TrackRequest, len(req.Requests))
	for i, r := range req.Requests {
		requests[i] = domain.TrackRequest{
			Artist:         r.Artist,
			Title:          r.Title,
			Album:          r.Album,
			ExpectedLength: r.ExpectedLength,
			SourceLabel:    req.SourceLabel,
		}
	}

	batch := h.orchestrator.RunBatch(c.Request.Context(), requests, app.BatchOptions{})

	resp := RunBatchResponse{Batch: batch}
	if req.Enqueue {
		job, _ := h.scheduler.EnqueueBatchResult(batch, req.SourceLabel)
		resp.JobID = job.ID
	}

	c.JSON(http.StatusOK, resp)
}
