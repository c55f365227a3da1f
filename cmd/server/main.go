package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/trackhound/api"
	"github.com/yourusername/trackhound/internal/app"
	"github.com/yourusername/trackhound/internal/domain"
	"github.com/yourusername/trackhound/internal/infrastructure"
	"github.com/yourusername/trackhound/internal/match"
	"github.com/yourusername/trackhound/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// If not in server mode, run as daemon
	if !*serverMode {
		startAsDaemon()
		return
	}

	// Run as server (called by daemon)
	runServer()
}

// startAsDaemon forks the current process and runs the server in background
func startAsDaemon() {
	// Get the executable path
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}

	// Fork the process
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}

	// Redirect output to /dev/null
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open /dev/null: %v\n", err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	// Start the child process
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() {
	// Load configuration
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Process logger: honors the configured level, format, and output path.
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Category logs (search, transfer, error, general) go to daily files when
	// a logs directory is configured; otherwise everything shares the process
	// logger.
	logAdapter := logger.NewSingleLoggerAdapter(log)
	if config.Logging.LogsDir != "" {
		if err := os.MkdirAll(config.Logging.LogsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
			os.Exit(1)
		}
		multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		defer multiLog.Close()
		logAdapter = logger.NewLoggerAdapter(multiLog)
	}

	log.Info("Starting TrackHound server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("slskd_url", config.Slskd.BaseURL),
		zap.Int("search_concurrency", config.Search.Concurrency),
		zap.Int("transfer_concurrency", config.Transfer.Concurrency))

	// Create download directory
	if err := os.MkdirAll(config.Transfer.DownloadDir, 0755); err != nil {
		log.Fatal("Failed to create download directory", zap.Error(err))
	}

	// Initialize history archive
	var history domain.HistoryRepository
	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize history archive", zap.Error(err))
		}
		defer repo.Close()
		history = repo
	}

	// Initialize notification service
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	// Initialize slskd transport (search + transfer)
	slskd := infrastructure.NewSlskdClient(&config.Slskd, &config.Search, &config.Transfer, log)

	// Shared components
	bus := app.NewBus()
	registry := app.NewRegistry()
	progress := app.NewProgressAggregator(registry, bus)
	conditions := match.BuildConditionSet(config.Conditions)

	// Initialize search orchestrator
	orchestrator := app.NewSearchOrchestrator(slskd, conditions, &config.Search, bus, logAdapter.Search())

	// Initialize download scheduler
	scheduler := app.NewDownloadScheduler(registry, slskd, progress, &config.Transfer, bus, logAdapter.Transfer())
	scheduler.SetHistory(history)
	scheduler.SetNotifier(notifier)
	scheduler.SetResolver(orchestrator)

	// Setup HTTP router
	router := api.SetupRouter(orchestrator, scheduler, registry, progress, bus, history, logAdapter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Stop in-flight transfers before the HTTP listener
	scheduler.CancelAll()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
