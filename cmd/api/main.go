package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"shopfeeds/internal/api"
	"shopfeeds/internal/api/handlers"
	"shopfeeds/internal/config"
	"shopfeeds/internal/database"
	"shopfeeds/internal/images"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/storage"
	"shopfeeds/internal/worker"
	"shopfeeds/internal/worker/processors"
	"shopfeeds/internal/worker/processors/export"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()
	builds := database.NewFeedBuildRepository(db.DB)

	// Build locks
	var locker storage.Locker = storage.NewMemoryLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := storage.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else if cfg.KafkaBrokers != "" {
		logger.Warn("KAFKA_BROKERS is set without REDIS_URL: build locks are released only when they expire")
	}

	// Builds go to Kafka when brokers are configured, otherwise they run here.
	var dispatcher handlers.Dispatcher
	var inProcess *worker.InProcess
	if cfg.KafkaBrokers != "" {
		publisher := worker.NewPublisher(cfg)
		defer publisher.Close()
		dispatcher = publisher
		logger.Info("Publishing builds to topic %s", cfg.KafkaTopic)
	} else {
		exporter := export.New(cfg.FeedSettings(), logger)
		if cfg.S3Bucket != "" {
			mirror, err := images.NewS3Mirror(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
			if err != nil {
				logger.Fatal("Failed to configure S3 mirror: %v", err)
			}
			exporter.WithMirror(mirror)
		}
		processor := processors.NewEventProcessor(cfg.FeedsDir, logger, exporter, builds, locker)
		inProcess = worker.NewInProcess(ctx, logger, processor)
		dispatcher = inProcess
		logger.Info("Running builds in process")
	}

	// Initialize API server
	server := api.New(cfg, logger, api.Dependencies{
		Builds:     builds,
		Dispatcher: dispatcher,
		Locker:     locker,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	if inProcess != nil {
		inProcess.Wait()
	}
	logger.Info("Server stopped")
}
