package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ratewise/ratewise/internal/db"
	"github.com/ratewise/ratewise/internal/engine"
	"github.com/ratewise/ratewise/pkg/config"
	"github.com/ratewise/ratewise/pkg/logging"
	"github.com/ratewise/ratewise/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Ratewise Scheduler")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	counters, err := telemetry.NewJobCounters()
	if err != nil {
		logger.Fatal("Failed to create job counters", zap.Error(err))
	}

	store := db.NewStore(database)
	scheduler := engine.NewScheduler(store, &cfg.Engine, &cfg.Jobs, counters)

	// Run until interrupted
	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down scheduler...")
		cancel()
	}()

	scheduler.Run(ctx)

	logger.Info("Scheduler exited")
}
