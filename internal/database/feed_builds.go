package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfeeds/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Completion carries the outcome of a successful build.
type Completion struct {
	FilePath   string
	ItemCount  int
	ImageCount int
	Warnings   []string
}

type FeedBuildRepository struct {
	db *gorm.DB
}

func NewFeedBuildRepository(db *gorm.DB) *FeedBuildRepository {
	return &FeedBuildRepository{db: db}
}

func (r *FeedBuildRepository) Create(ctx context.Context, b *models.FeedBuild) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create feed build: %w", err)
	}
	return nil
}

func (r *FeedBuildRepository) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now()
	return r.update(ctx, id, map[string]interface{}{
		"status":     models.BuildStatusProcessing,
		"started_at": now,
	})
}

func (r *FeedBuildRepository) MarkCompleted(ctx context.Context, id string, c Completion) error {
	now := time.Now()
	return r.update(ctx, id, map[string]interface{}{
		"status":      models.BuildStatusCompleted,
		"file_path":   c.FilePath,
		"item_count":  c.ItemCount,
		"image_count": c.ImageCount,
		"warnings":    pq.StringArray(c.Warnings),
		"error":       nil,
		"finished_at": now,
	})
}

func (r *FeedBuildRepository) MarkFailed(ctx context.Context, id string, message string) error {
	now := time.Now()
	return r.update(ctx, id, map[string]interface{}{
		"status":      models.BuildStatusError,
		"error":       message,
		"finished_at": now,
	})
}

func (r *FeedBuildRepository) Get(ctx context.Context, id string) (*models.FeedBuild, error) {
	var b models.FeedBuild
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "failed to get feed build")
	}
	return &b, nil
}

// Latest returns the most recently created build of a store and feed type.
func (r *FeedBuildRepository) Latest(ctx context.Context, storeURL, feedType string) (*models.FeedBuild, error) {
	var b models.FeedBuild
	err := r.db.WithContext(ctx).
		Where("store_url = ? AND feed_type = ?", storeURL, feedType).
		Order("created_at DESC").
		First(&b).Error
	if err != nil {
		return nil, wrapNotFound(err, "failed to get latest feed build")
	}
	return &b, nil
}

func (r *FeedBuildRepository) update(ctx context.Context, id string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.FeedBuild{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update feed build %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("feed build %s: %w", id, ErrNotFound)
	}
	return nil
}

func wrapNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
