package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered once with the default registry and shared by the
// api and worker binaries.
var (
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfeeds_catalog_requests_total",
		Help: "Catalog page requests by resource and outcome.",
	}, []string{"resource", "outcome"}) // outcome: success, retry, exhausted

	ImagesDownloaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfeeds_images_total",
		Help: "Image download tasks by outcome.",
	}, []string{"outcome"})

	FeedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfeeds_feed_items_total",
		Help: "Feed items written by feed type.",
	}, []string{"feed"})

	VariantsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfeeds_variants_skipped_total",
		Help: "Variants dropped during transformation.",
	}, []string{"feed"})

	FeedBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfeeds_builds_total",
		Help: "Feed builds by feed type and final status.",
	}, []string{"feed", "status"})

	FeedBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopfeeds_build_duration_seconds",
		Help:    "Duration of feed builds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
	}, []string{"feed"})
)
