package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/database"
	"shopfeeds/internal/images"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
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

	if cfg.KafkaBrokers == "" {
		logger.Fatal("KAFKA_BROKERS is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var locker storage.Locker = storage.NewMemoryLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := storage.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	exporter := export.New(cfg.FeedSettings(), logger)
	if cfg.S3Bucket != "" {
		mirror, err := images.NewS3Mirror(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			logger.Fatal("Failed to configure S3 mirror: %v", err)
		}
		exporter.WithMirror(mirror)
	}
	processor := processors.NewEventProcessor(cfg.FeedsDir, logger, exporter, database.NewFeedBuildRepository(db.DB), locker)

	if cfg.MetricsAddr != "" {
		metrics := monitoring.NewServer(cfg.MetricsAddr, logger)
		go metrics.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Stop(shutdownCtx)
		}()
	}

	// Initialize worker
	w := worker.New(cfg, logger, processor, locker)

	// Start worker
	logger.Info("Starting worker...")
	w.Start(ctx)

	logger.Info("Shutting down worker...")
	w.Stop()
}
