package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shared-expense-ledger/internal/api_gateway"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/data/mongo"
	"github.com/shared-expense-ledger/internal/data/postgres"
	"github.com/shared-expense-ledger/internal/data/redis"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shared-expense-ledger/internal/logger"
	"github.com/shared-expense-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting API gateway", "env", cfg.Application.Env, "config_file", cfg.Source)

	// Runs the schema migrations as well
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize stores
	store := postgres.NewStore(log, postgresDB, persistence.RetryPolicy{
		Timeout:     cfg.Ledger.StoreTimeout,
		MaxAttempts: cfg.Ledger.StoreMaxAttempts,
		Backoff:     cfg.Ledger.StoreBackoff,
	})
	idempotencyKeys := redis.NewIdempotencyStore(log, redisClient, cfg.Redis.IdempotencyTTL)
	taskRepo := mongo.NewReconciliationRepository(log, mongoDB.Database())

	// Initialize services
	grouping := ledger.NewGroupingEngine(log, cfg.Ledger.ClusterWindow)
	services := api_gateway.Services{
		Expenses:        service.NewExpenseService(log, store, idempotencyKeys, cfg.Ledger.ListLimit),
		Settlements:     service.NewSettlementService(log, store, grouping, idempotencyKeys),
		Debts:           service.NewDebtService(log, store),
		Reconciliations: service.NewReconciliationService(log, taskRepo),
	}

	server := api_gateway.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests before the stores go away
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
		shutdownErr = err
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
