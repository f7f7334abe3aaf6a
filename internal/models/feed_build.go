package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// FeedBuild records one feed generation run for a store and feed type.
type FeedBuild struct {
	ID             string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	StoreURL       string         `json:"store_url" gorm:"not null;index:idx_feed_builds_store_type"`
	FeedType       string         `json:"feed_type" gorm:"not null;index:idx_feed_builds_store_type"`
	Status         BuildStatus    `json:"status" gorm:"not null;default:pending"`
	DownloadImages bool           `json:"download_images"`
	FeedURL        string         `json:"feed_url"`
	FilePath       string         `json:"-"`
	ItemCount      int            `json:"item_count"`
	ImageCount     int            `json:"image_count"`
	Error          *string        `json:"error,omitempty" gorm:"type:text"`
	Warnings       pq.StringArray `json:"warnings,omitempty" gorm:"type:text"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type BuildStatus string

const (
	BuildStatusPending    BuildStatus = "pending"
	BuildStatusProcessing BuildStatus = "processing"
	BuildStatusCompleted  BuildStatus = "completed"
	BuildStatusError      BuildStatus = "error"
)

// Finished reports whether the build reached a terminal status.
func (s BuildStatus) Finished() bool {
	return s == BuildStatusCompleted || s == BuildStatusError
}

func (b *FeedBuild) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BuildStatusPending
	}
	return nil
}
