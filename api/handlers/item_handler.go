package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/trackhound/internal/app"
	"github.com/yourusername/trackhound/internal/domain"
)

// ItemHandler handles item and transfer queue HTTP requests
type ItemHandler struct {
	scheduler *app.DownloadScheduler
	registry  *app.Registry
	logger    *zap.Logger

	mu        sync.Mutex
	runCancel context.CancelFunc
}

// NewItemHandler creates a new item handler
func NewItemHandler(scheduler *app.DownloadScheduler, registry *app.Registry, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		scheduler: scheduler,
		registry:  registry,
		logger:    logger,
	}
}

// CandidateBody is an explicit candidate supplied on direct enqueue
type CandidateBody struct {
	OwnerID       string `json:"owner_id" binding:"required"`
	FilePath      string `json:"file_path" binding:"required"`
	Format        string `json:"format,omitempty"`
	BitrateKbps   int    `json:"bitrate_kbps,omitempty"`
	SampleRateHz  int    `json:"sample_rate_hz,omitempty"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	LengthSeconds int    `json:"length_seconds,omitempty"`
}

// EnqueueTrackRequest represents a direct track enqueue. Candidate is
// optional; an item enqueued without one is re-resolved through search when a
// worker picks it up.
type EnqueueTrackRequest struct {
	JobID     string         `json:"job_id,omitempty"`
	Artist    string         `json:"artist"`
	Title     string         `json:"title" binding:"required"`
	Album     string         `json:"album,omitempty"`
	Candidate *CandidateBody `json:"candidate,omitempty"`
}

// EnqueueTrack handles POST /api/v1/items. Enqueuing a track whose unique
// hash is already registered is a no-op returning the existing item.
func (h *ItemHandler) EnqueueTrack(c *gin.Context) {
	var req EnqueueTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := req.JobID
	if jobID == "" {
		job := domain.NewJob(req.Artist+" - "+req.Title, domain.JobKindAdhoc)
		h.registry.AddJob(job)
		jobID = job.ID
	}

	item := domain.NewItem(jobID, req.Artist, req.Title, req.Album)
	if req.Candidate != nil {
		item.Selected = &domain.Candidate{
			OwnerID:       req.Candidate.OwnerID,
			FilePath:      req.Candidate.FilePath,
			Format:        req.Candidate.Format,
			BitrateKbps:   req.Candidate.BitrateKbps,
			SampleRateHz:  req.Candidate.SampleRateHz,
			SizeBytes:     req.Candidate.SizeBytes,
			LengthSeconds: req.Candidate.LengthSeconds,
		}
	}

	tracked, added := h.scheduler.Enqueue(item)
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	c.JSON(status, tracked)
}

// GetItem handles GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListItems handles GET /api/v1/items
func (h *ItemHandler) ListItems(c *gin.Context) {
	items := h.registry.AllItems()

	if state := c.Query("state"); state != "" {
		filtered := items[:0]
		for _, it := range items {
			if it.State == domain.ItemState(state) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	c.JSON(http.StatusOK, items)
}

// CancelItem handles POST /api/v1/items/:id/cancel
func (h *ItemHandler) CancelItem(c *gin.Context) {
	if err := h.scheduler.CancelItem(c.Param("id")); err != nil {
		h.respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item cancelled"})
}

// RetryItem handles POST /api/v1/items/:id/retry
func (h *ItemHandler) RetryItem(c *gin.Context) {
	if err := h.scheduler.RetryItem(c.Param("id")); err != nil {
		h.respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item queued for retry"})
}

// PauseItem handles POST /api/v1/items/:id/pause
func (h *ItemHandler) PauseItem(c *gin.Context) {
	if err := h.scheduler.PauseItem(c.Param("id")); err != nil {
		h.respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item paused"})
}

// ResumeItem handles POST /api/v1/items/:id/resume
func (h *ItemHandler) ResumeItem(c *gin.Context) {
	if err := h.scheduler.ResumeItem(c.Param("id")); err != nil {
		h.respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item resumed"})
}

// DeleteItem handles DELETE /api/v1/items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.scheduler.DeleteItem(c.Param("id")); err != nil {
		h.respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// StartQueue handles POST /api/v1/queue/start. The worker pool runs in the
// background until drained or cancelled.
func (h *ItemHandler) StartQueue(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.scheduler.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "queue already running"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.runCancel = cancel
	go func() {
		if err := h.scheduler.StartAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Error("Queue run ended with error", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "queue started"})
}

// CancelQueue handles POST /api/v1/queue/cancel
func (h *ItemHandler) CancelQueue(c *gin.Context) {
	h.mu.Lock()
	if h.runCancel != nil {
		h.runCancel()
		h.runCancel = nil
	}
	h.mu.Unlock()

	h.scheduler.CancelAll()
	c.JSON(http.StatusOK, gin.H{"message": "queue cancelled"})
}

func (h *ItemHandler) respondActionError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
}
