package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/trackhound/api/handlers"
	"github.com/yourusername/trackhound/api/middleware"
	"github.com/yourusername/trackhound/internal/app"
	"github.com/yourusername/trackhound/internal/domain"
	"github.com/yourusername/trackhound/pkg/logger"
)

// SetupRouter sets up the HTTP router with multi-logger support
func SetupRouter(
	orchestrator *app.SearchOrchestrator,
	scheduler *app.DownloadScheduler,
	registry *app.Registry,
	progress *app.ProgressAggregator,
	bus *app.Bus,
	history domain.HistoryRepository,
	logAdapter *logger.LoggerAdapter,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logAdapter.GetSingleLogger()))
	router.Use(middleware.Recovery(logAdapter.GetSingleLogger()))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(scheduler)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Batch search endpoints
		batchHandler := handlers.NewBatchHandler(orchestrator, scheduler, logAdapter.GetSingleLogger())
		v1.POST("/batches", batchHandler.RunBatch)

		// Item endpoints
		itemHandler := handlers.NewItemHandler(scheduler, registry, logAdapter.GetSingleLogger())
		items := v1.Group("/items")
		{
			items.POST("", itemHandler.EnqueueTrack)
			items.GET("", itemHandler.ListItems)
			items.GET("/:id", itemHandler.GetItem)
			items.POST("/:id/cancel", itemHandler.CancelItem)
			items.POST("/:id/retry", itemHandler.RetryItem)
			items.POST("/:id/pause", itemHandler.PauseItem)
			items.POST("/:id/resume", itemHandler.ResumeItem)
			items.DELETE("/:id", itemHandler.DeleteItem)
		}

		// Queue control endpoints
		queue := v1.Group("/queue")
		{
			queue.POST("/start", itemHandler.StartQueue)
			queue.POST("/cancel", itemHandler.CancelQueue)
		}

		// Job endpoints
		jobHandler := handlers.NewJobHandler(registry, progress, history, logAdapter.GetSingleLogger())
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.GET("/:id/items", jobHandler.GetJobItems)
			jobs.GET("/:id/progress", jobHandler.GetJobProgress)
		}

		// History endpoints
		hist := v1.Group("/history")
		{
			hist.GET("/jobs", jobHandler.ListHistoryJobs)
			hist.GET("/stats", jobHandler.GetHistoryStats)
		}

		// Events WebSocket
		eventsHandler := handlers.NewEventsHandler(bus, logAdapter.GetSingleLogger())
		v1.GET("/events", eventsHandler.HandleWebSocket)
	}

	return router
}
