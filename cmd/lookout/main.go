package main

import (
	"context"

	"watchtower/internal/fetchers"
	"watchtower/internal/handlers"
	"watchtower/internal/store"
	"watchtower/internal/syncer"
	"watchtower/pkg/config"
	"watchtower/pkg/database"
	"watchtower/pkg/logging"
	"watchtower/pkg/middleware"
	"watchtower/pkg/monitoring"
	"watchtower/pkg/server"
	"watchtower/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("lookout")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Lookout (Situation Ingestion API)")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = config.GetEnv("DATABASE_URL", "")
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	if err := database.EnsureSchema(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("lookout", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("lookout", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":  config.GetEnv("DATABASE_URL", ""),
		"SERVICE_TOKEN": config.GetEnv("SERVICE_TOKEN", ""),
	}))
	healthChecker.AddCheck("sync_ledger", monitoring.SyncLedgerHealthCheck(db))

	// Create ingestion metrics
	syncRuns, syncRecords, syncDuration := metricsCollector.CreateSyncMetrics()

	// Wire the pipeline: fetchers -> syncer -> scheduled jobs
	dataStore := store.NewStore(db)
	fetcherSet := fetchers.New(fetchers.ConfigFromEnv(), logger)
	sync := syncer.New(dataStore, fetcherSet, logger, &syncer.Metrics{
		Runs:     syncRuns,
		Records:  syncRecords,
		Duration: syncDuration,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobManager := syncer.NewJobManager(sync, logger)
	jobManager.Start(ctx)
	defer jobManager.Stop()

	// Initialize handlers
	handlers.Init(sync.Jobs(), dataStore, logger)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "lookout", healthChecker, metricsCollector)

	// Protected routes (require service token authentication, bypassed
	// in local/dev deployments)
	serviceToken := config.GetEnv("SERVICE_TOKEN", "default-service-token")
	protected := router.Group("/api")
	protected.Use(middleware.ServiceAuthMiddleware(serviceToken, config.IsLocalEnv()))
	{
		protected.POST("/sync/:job", handlers.TriggerSync)
		protected.GET("/sync/status", handlers.ListSyncStatus)
		protected.GET("/sync/status/:job", handlers.GetSyncStatus)
		protected.GET("/sync/jobs", handlers.ListJobs)
	}

	// Start server
	serverConfig := server.DefaultConfig("lookout", "18020")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
