package processors

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"shopfeeds/internal/database"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
	"shopfeeds/internal/storage"
	"shopfeeds/internal/worker/processors/export"
)

const EventBuildRequested = "feed.build.requested"

// Event is a feed build request as carried on the queue.
type Event struct {
	Type           string    `json:"type"`
	BuildID        string    `json:"build_id"`
	StoreURL       string    `json:"store_url"`
	FeedType       string    `json:"feed_type"`
	DownloadImages bool      `json:"download_images"`
	Timestamp      time.Time `json:"timestamp"`
}

// BuildStore records build status transitions.
type BuildStore interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, c database.Completion) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// Builder produces a feed file.
type Builder interface {
	Build(ctx context.Context, req export.Request) (*export.Result, error)
}

type EventProcessor struct {
	feedsDir string
	logger   *logger.Logger
	builds   BuildStore
	exporter Builder
	locker   storage.Locker
}

func NewEventProcessor(feedsDir string, logger *logger.Logger, exporter Builder, builds BuildStore, locker storage.Locker) *EventProcessor {
	return &EventProcessor{
		feedsDir: feedsDir,
		logger:   logger.Named("processor"),
		builds:   builds,
		exporter: exporter,
		locker:   locker,
	}
}

// OutputPath returns where the feed of a store and feed type is written.
func (ep *EventProcessor) OutputPath(storeURL, feedType string) string {
	return filepath.Join(ep.feedsDir, export.FileName(storeURL, feedType))
}

// Process runs a requested build and records its outcome. The build lock
// taken when the request was accepted is released when the build ends.
func (ep *EventProcessor) Process(ctx context.Context, event Event) error {
	if event.Type != EventBuildRequested {
		ep.logger.Debug("Ignoring event of type %q", event.Type)
		return nil
	}
	if ep.locker != nil {
		defer func() {
			if err := ep.locker.Release(context.WithoutCancel(ctx), storage.BuildKey(event.StoreURL, event.FeedType)); err != nil {
				ep.logger.Warn("Failed to release build lock: %v", err)
			}
		}()
	}

	ep.logger.Info("Processing build %s: %s feed for %s", event.BuildID, event.FeedType, event.StoreURL)
	if err := ep.builds.MarkProcessing(ctx, event.BuildID); err != nil {
		return fmt.Errorf("failed to mark build processing: %w", err)
	}

	res, err := ep.exporter.Build(ctx, export.Request{
		StoreURL:       event.StoreURL,
		FeedType:       event.FeedType,
		OutputPath:     ep.OutputPath(event.StoreURL, event.FeedType),
		DownloadImages: event.DownloadImages,
	})
	if err != nil {
		monitoring.FeedBuilds.WithLabelValues(event.FeedType, "error").Inc()
		ep.logger.Error("Build %s failed: %v", event.BuildID, err)
		if markErr := ep.builds.MarkFailed(context.WithoutCancel(ctx), event.BuildID, err.Error()); markErr != nil {
			ep.logger.Error("Failed to mark build %s failed: %v", event.BuildID, markErr)
		}
		return err
	}

	monitoring.FeedBuilds.WithLabelValues(event.FeedType, "completed").Inc()
	err = ep.builds.MarkCompleted(ctx, event.BuildID, database.Completion{
		FilePath:   res.Path,
		ItemCount:  res.Items,
		ImageCount: res.Images,
		Warnings:   res.Warnings,
	})
	if err != nil {
		return fmt.Errorf("failed to mark build completed: %w", err)
	}
	ep.logger.Info("Build %s completed in %s", event.BuildID, res.Duration.Round(time.Millisecond))
	return nil
}
