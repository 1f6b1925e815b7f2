package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/data/mongo"
	"github.com/shared-expense-ledger/internal/data/postgres"
	"github.com/shared-expense-ledger/internal/logger"
	"github.com/shared-expense-ledger/internal/platform/messaging/consumers"
	"github.com/shared-expense-ledger/internal/platform/messaging/producers"
	"github.com/shared-expense-ledger/internal/platform/persistence"
	"github.com/shared-expense-ledger/internal/reconciler/components"
	"github.com/shared-expense-ledger/internal/reconciler/consumer"
	"github.com/shared-expense-ledger/internal/reconciler/outbox_poller"
)

const shutdownTimeout = 30 * time.Second

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"config_file", cfg.Source,
	)

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

	store := postgres.NewStore(log, postgresDB, persistence.RetryPolicy{
		Timeout:     cfg.Ledger.StoreTimeout,
		MaxAttempts: cfg.Ledger.StoreMaxAttempts,
		Backoff:     cfg.Ledger.StoreBackoff,
	})
	taskRepo := mongo.NewReconciliationRepository(log, mongoDB.Database())
	if err := taskRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create reconciliation task indexes", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewReconciliationEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize reconciliation Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	repairService, shutdownPool := components.CreateRepairService(store, taskRepo, log, cfg)
	eventHandler := consumer.NewReconciliationEventHandler(log, repairService, dlqProducer)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		store.Outbox(),
		outbox_poller.NewEventRelay(store.Outbox(), eventProducer, log),
		log,
	)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.ReconciliationTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-time.After(shutdownTimeout):
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	shutdownPool()

	var shutdownErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing reconciliation Kafka producer", "error", err)
		shutdownErr = err
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelClose()
	if err := mongoDB.Close(closeCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Reconciler shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Reconciler shutdown completed with errors")
	} else {
		log.Info("Reconciler shutdown completed successfully")
	}
}
