package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_3) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.47 Safari/537.36"

type Config struct {
	// Database
	DatabaseURL string

	// Redis (empty keeps build locks in memory)
	RedisURL string

	// Kafka (empty runs builds inside the API process)
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	// Worker metrics listener (empty disables it)
	MetricsAddr string

	// API Configuration
	APIPort string
	APIHost string

	// Feed output
	FeedsDir     string
	BuildLockTTL time.Duration

	// Catalog fetching
	Currency          string
	MaxRetries        int
	RetryDelay        time.Duration
	PageLimit         int
	UserAgent         string
	CollectionWorkers int

	// Images
	ImageWorkers int
	ImageTimeout time.Duration

	// S3 image mirror (empty bucket disables it)
	S3Bucket  string
	S3Prefix  string
	AWSRegion string

	// Environment
	Env      string
	LogLevel string
}

// FeedSettings is the per-run view of the configuration handed to the
// catalog client, transformers and image downloader. It is a value type so a
// build can never observe another build's changes.
type FeedSettings struct {
	Currency          string
	MaxRetries        int
	RetryDelay        time.Duration
	PageLimit         int
	UserAgent         string
	CollectionWorkers int
	ImageWorkers      int
	ImageTimeout      time.Duration
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", "sqlite://shopfeeds.db"),
		RedisURL:          getEnv("REDIS_URL", ""),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "feed-builds"),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "shopfeeds-worker"),
		MetricsAddr:       getEnv("WORKER_METRICS_ADDR", ":9091"),
		APIPort:           getEnv("API_PORT", "8000"),
		APIHost:           getEnv("API_HOST", "0.0.0.0"),
		FeedsDir:          getEnv("FEEDS_DIR", "static/feeds"),
		BuildLockTTL:      getEnvAsDuration("BUILD_LOCK_TTL_MINUTES", 60, time.Minute),
		Currency:          getEnv("CURRENCY", "CZK"),
		MaxRetries:        getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay:        getEnvAsDuration("RETRY_DELAY_SECONDS", 180, time.Second),
		PageLimit:         getEnvAsInt("PAGE_LIMIT", 250),
		UserAgent:         getEnv("USER_AGENT", DefaultUserAgent),
		CollectionWorkers: getEnvAsInt("COLLECTION_WORKERS", 1),
		ImageWorkers:      getEnvAsInt("IMAGE_WORKERS", 4),
		ImageTimeout:      getEnvAsDuration("IMAGE_TIMEOUT_SECONDS", 30, time.Second),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", "images"),
		AWSRegion:         getEnv("AWS_REGION", "eu-central-1"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

// FeedSettings returns a copy of the feed related settings with invalid
// values replaced by their defaults.
func (c *Config) FeedSettings() FeedSettings {
	s := FeedSettings{
		Currency:          c.Currency,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay,
		PageLimit:         c.PageLimit,
		UserAgent:         c.UserAgent,
		CollectionWorkers: c.CollectionWorkers,
		ImageWorkers:      c.ImageWorkers,
		ImageTimeout:      c.ImageTimeout,
	}
	return s.WithDefaults()
}

// WithDefaults fills zero or negative fields.
func (s FeedSettings) WithDefaults() FeedSettings {
	if s.Currency == "" {
		s.Currency = "CZK"
	}
	if s.MaxRetries < 1 {
		s.MaxRetries = 3
	}
	if s.RetryDelay < 0 {
		s.RetryDelay = 0
	}
	if s.PageLimit < 1 {
		s.PageLimit = 250
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.CollectionWorkers < 1 {
		s.CollectionWorkers = 1
	}
	if s.ImageWorkers < 1 {
		s.ImageWorkers = 4
	}
	if s.ImageTimeout <= 0 {
		s.ImageTimeout = 30 * time.Second
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * unit
}
