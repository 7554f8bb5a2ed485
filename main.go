package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"liveTradeFeed/config"
	"liveTradeFeed/internal/adapters/httpapi"
	"liveTradeFeed/internal/adapters/logger"
	"liveTradeFeed/internal/adapters/sqlite"
	"liveTradeFeed/internal/adapters/wsfeed"
	"liveTradeFeed/internal/app"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Diagnostics Journal)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize diagnostics repository")
		log.Fatalf("FATAL: Failed to initialize diagnostics repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing diagnostics repository")
		}
	}()
	appLogger.Info(context.Background(), "Diagnostics repository initialized")

	// 4. Initialize Feed Client (WebSocket Adapter)
	feedClient, err := wsfeed.New(wsfeed.Config{
		URL:                  cfg.FeedURL,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize feed client")
		log.Fatalf("FATAL: Failed to initialize feed client: %v", err)
	}
	appLogger.Info(context.Background(), "Feed client initialized", map[string]interface{}{"url": cfg.FeedURL})

	// 5. Initialize Application Service
	feedService, err := app.NewFeedService(cfg, appLogger, feedClient, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize feed service")
		log.Fatalf("FATAL: Failed to initialize feed service: %v", err)
	}
	appLogger.Info(context.Background(), "Feed service initialized", map[string]interface{}{"sessionID": feedService.SessionID()})

	// 6. Initialize HTTP API
	apiServer, err := httpapi.New(httpapi.Config{
		Addr:   cfg.HTTPAddr,
		Reader: feedService,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize HTTP API")
		log.Fatalf("FATAL: Failed to initialize HTTP API: %v", err)
	}

	// 7. Initialize Diagnostics Retention
	retention, err := app.NewRetentionJob(repo, appLogger, cfg.DiagnosticsRetention, cfg.PruneSchedule)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize diagnostics retention")
		log.Fatalf("FATAL: Failed to initialize diagnostics retention: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiDone := make(chan error, 1)
	go func() { apiDone <- apiServer.Run(ctx) }()

	retentionDone := make(chan struct{})
	go func() {
		retention.Run(ctx)
		close(retentionDone)
	}()

	// 8. Start the Service (blocks until shutdown signal or feed failure)
	serviceErr := feedService.Start(ctx)
	cancel()
	<-retentionDone
	if err := <-apiDone; err != nil {
		appLogger.Error(context.Background(), err, "HTTP API exited with error")
	}
	if serviceErr != nil {
		appLogger.Error(context.Background(), serviceErr, "Feed service exited with error")
		log.Fatalf("FATAL: Feed service exited with error: %v", serviceErr)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
