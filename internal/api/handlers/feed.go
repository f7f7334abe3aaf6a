package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shopfeeds/internal/database"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/models"
	"shopfeeds/internal/services/shopify"
	"shopfeeds/internal/storage"
	"shopfeeds/internal/worker/processors"
	"shopfeeds/internal/worker/processors/export"

	"github.com/gin-gonic/gin"
)

// BuildRepository stores feed build records.
type BuildRepository interface {
	Create(ctx context.Context, b *models.FeedBuild) error
	MarkFailed(ctx context.Context, id string, message string) error
	Get(ctx context.Context, id string) (*models.FeedBuild, error)
	Latest(ctx context.Context, storeURL, feedType string) (*models.FeedBuild, error)
}

// Dispatcher hands an accepted build to whatever runs it: the Kafka
// publisher or an in-process runner.
type Dispatcher interface {
	Publish(ctx context.Context, event processors.Event) error
}

type FeedHandler struct {
	builds     BuildRepository
	dispatcher Dispatcher
	locker     storage.Locker
	lockTTL    time.Duration
	feedsDir   string
	logger     *logger.Logger
}

func NewFeedHandler(builds BuildRepository, dispatcher Dispatcher, locker storage.Locker, lockTTL time.Duration, feedsDir string, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{
		builds:     builds,
		dispatcher: dispatcher,
		locker:     locker,
		lockTTL:    lockTTL,
		feedsDir:   feedsDir,
		logger:     logger.Named("feeds"),
	}
}

type CreateFeedRequest struct {
	StoreURL       string `json:"store_url" binding:"required"`
	FeedType       string `json:"feed_type" binding:"required"`
	DownloadImages bool   `json:"download_images"`
}

// Create accepts a feed build. The build lock is taken here and released by
// the processor when the build ends.
func (h *FeedHandler) Create(c *gin.Context) {
	var req CreateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	feedType := strings.ToLower(strings.TrimSpace(req.FeedType))
	if !export.ValidFeedType(feedType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported feed type", "feed_types": export.FeedTypes})
		return
	}
	storeURL := shopify.NormalizeStoreURL(req.StoreURL)
	ctx := c.Request.Context()

	key := storage.BuildKey(storeURL, feedType)
	ok, err := h.locker.Acquire(ctx, key, h.lockTTL)
	if err != nil {
		h.logger.Error("Failed to acquire build lock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start build"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "A build for this store and feed type is already running"})
		return
	}

	build := &models.FeedBuild{
		StoreURL:       storeURL,
		FeedType:       feedType,
		DownloadImages: req.DownloadImages,
		FeedURL:        "/feeds/" + export.FileName(storeURL, feedType),
	}
	if err := h.builds.Create(ctx, build); err != nil {
		h.release(ctx, key)
		h.logger.Error("Failed to create build: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create build"})
		return
	}

	err = h.dispatcher.Publish(ctx, processors.Event{
		Type:           processors.EventBuildRequested,
		BuildID:        build.ID,
		StoreURL:       storeURL,
		FeedType:       feedType,
		DownloadImages: req.DownloadImages,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		h.release(ctx, key)
		h.logger.Error("Failed to dispatch build %s: %v", build.ID, err)
		if markErr := h.builds.MarkFailed(ctx, build.ID, err.Error()); markErr != nil {
			h.logger.Error("Failed to mark build %s failed: %v", build.ID, markErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue build"})
		return
	}

	h.logger.Info("Accepted %s build %s for %s", feedType, build.ID, storeURL)
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{
		"build_id": build.ID,
		"status":   build.Status,
		"feed_url": build.FeedURL,
	}})
}

func (h *FeedHandler) Get(c *gin.Context) {
	build, err := h.builds.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": build})
}

// Status returns the latest build of a store and feed type.
func (h *FeedHandler) Status(c *gin.Context) {
	storeURL := c.Query("store_url")
	feedType := strings.ToLower(c.Query("feed_type"))
	if storeURL == "" || feedType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_url and feed_type are required"})
		return
	}
	build, err := h.builds.Latest(c.Request.Context(), shopify.NormalizeStoreURL(storeURL), feedType)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": build})
}

// Download serves a generated feed file.
func (h *FeedHandler) Download(c *gin.Context) {
	name := c.Param("filename")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".xml") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	path := filepath.Join(h.feedsDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.File(path)
}

func (h *FeedHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Build not found"})
		return
	}
	h.logger.Error("Failed to fetch build: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch build"})
}

func (h *FeedHandler) release(ctx context.Context, key string) {
	if err := h.locker.Release(context.WithoutCancel(ctx), key); err != nil {
		h.logger.Warn("Failed to release build lock: %v", err)
	}
}
