package export

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/feed"
	"shopfeeds/internal/feed/bing"
	"shopfeeds/internal/feed/google"
	"shopfeeds/internal/feed/xmlwriter"
	"shopfeeds/internal/feed/zbozi"
	"shopfeeds/internal/images"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
	"shopfeeds/internal/services/shopify"
	"shopfeeds/internal/worker/processors/validation"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownFeedType = errors.New("unknown feed type")

// maxWarnings caps the validation messages kept on a build record.
const maxWarnings = 50

// FeedTypes lists the supported feed types.
var FeedTypes = []string{google.Name, bing.Name, zbozi.Name}

// Request describes one feed build.
type Request struct {
	StoreURL       string
	FeedType       string
	OutputPath     string
	DownloadImages bool
}

type Result struct {
	Path     string
	Items    int
	Images   int
	Warnings []string
	Duration time.Duration
}

// Exporter builds a feed file from a storefront catalog: it fetches the
// catalog, maps it through the feed type's transformer, validates the
// items, optionally downloads their images, and writes the XML document.
type Exporter struct {
	settings   config.FeedSettings
	logger     *logger.Logger
	validator  *validation.Validator
	httpClient *http.Client
	mirror     images.Mirror
	now        func() time.Time
}

func New(settings config.FeedSettings, logger *logger.Logger) *Exporter {
	return &Exporter{
		settings:  settings.WithDefaults(),
		logger:    logger.Named("export"),
		validator: validation.New(logger),
		now:       time.Now,
	}
}

// WithHTTPClient sets the client used for catalog and image requests.
func (e *Exporter) WithHTTPClient(c *http.Client) *Exporter {
	e.httpClient = c
	return e
}

// WithMirror uploads downloaded images to m.
func (e *Exporter) WithMirror(m images.Mirror) *Exporter {
	e.mirror = m
	return e
}

// NewTransformer returns the transformer of feedType.
func NewTransformer(feedType string, opts feed.Options, log *logger.Logger) (feed.Transformer, error) {
	switch strings.ToLower(feedType) {
	case google.Name:
		return google.New(opts, log), nil
	case bing.Name:
		return bing.New(opts, log), nil
	case zbozi.Name:
		return zbozi.New(opts, log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFeedType, feedType)
}

// ValidFeedType reports whether feedType names a supported feed.
func ValidFeedType(feedType string) bool {
	for _, t := range FeedTypes {
		if t == strings.ToLower(feedType) {
			return true
		}
	}
	return false
}

// FileName returns the feed file name of a store and feed type.
func FileName(storeURL, feedType string) string {
	return fmt.Sprintf("%s_%s.xml", storeHash(storeURL), strings.ToLower(feedType))
}

func storeHash(storeURL string) string {
	sum := md5.Sum([]byte(shopify.NormalizeStoreURL(storeURL)))
	return hex.EncodeToString(sum[:])[:8]
}

// ImagesFolder returns the folder images of a build are written to, next to
// the feed file.
func ImagesFolder(outputPath, storeURL string, at time.Time) string {
	name := "store"
	if u, err := url.Parse(shopify.NormalizeStoreURL(storeURL)); err == nil && u.Hostname() != "" {
		name = strings.Split(u.Hostname(), ".")[0]
	}
	return filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("%s_images_%s", name, at.Format("20060102_150405")))
}

func (e *Exporter) Build(ctx context.Context, req Request) (*Result, error) {
	start := e.now()

	client := shopify.NewClient(req.StoreURL, e.settings, e.logger)
	if e.httpClient != nil {
		client.WithHTTPClient(e.httpClient)
	}
	opts := feed.Options{StoreURL: client.StoreURL(), Currency: e.settings.Currency}
	tr, err := NewTransformer(req.FeedType, opts, e.logger)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Starting %s feed build for %s", tr.Name(), client.StoreURL())

	var items []*feed.Item
	if tr.Name() == bing.Name {
		items = e.collectAll(ctx, client, tr)
	} else {
		items = e.collectByCollection(ctx, client, tr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("feed build cancelled: %w", err)
	}
	e.logger.Info("Processed %d %s items", len(items), tr.Name())

	layout := tr.Layout()
	var warnings []string
	for _, issue := range e.validator.ValidateItems(layout, items) {
		if len(warnings) == maxWarnings {
			break
		}
		warnings = append(warnings, issue.String())
	}

	result := &Result{Path: req.OutputPath, Items: len(items), Warnings: warnings}

	if req.DownloadImages && len(items) > 0 {
		folder := ImagesFolder(req.OutputPath, client.StoreURL(), e.now())
		downloader := images.NewDownloader(e.settings, e.logger)
		if e.httpClient != nil {
			downloader.WithHTTPClient(e.httpClient)
		}
		if e.mirror != nil {
			downloader.WithMirror(e.mirror)
		}
		saved, err := downloader.DownloadAll(ctx, items, layout.Images, folder)
		if err != nil {
			return nil, fmt.Errorf("failed to download images: %w", err)
		}
		result.Images = len(saved)
	}

	shop, ok := client.ShopInfo(ctx)
	if !ok {
		shop = shopify.DefaultShopInfo(client.StoreURL())
	}

	if err := xmlwriter.WriteFile(req.OutputPath, layout, shop, items); err != nil {
		return nil, fmt.Errorf("failed to write %s feed: %w", tr.Name(), err)
	}

	result.Duration = e.now().Sub(start)
	monitoring.FeedItems.WithLabelValues(tr.Name()).Add(float64(len(items)))
	monitoring.FeedBuildDuration.WithLabelValues(tr.Name()).Observe(result.Duration.Seconds())
	e.logger.Info("%s feed saved to %s: %d items, %d images", tr.Name(), req.OutputPath, len(items), result.Images)
	return result, nil
}

// batch holds what one collection contributed, in catalog order.
type batch struct {
	productIDs []int64
	items      [][]*feed.Item
}

func (e *Exporter) collectAll(ctx context.Context, client *shopify.Client, tr feed.Transformer) []*feed.Item {
	b, err := e.mapCollection(ctx, client, tr, "")
	if err != nil {
		e.logger.Error("Failed to process products: %v", err)
	}
	return merge([]batch{b})
}

// collectByCollection walks every collection, up to CollectionWorkers at a
// time, and merges them in collection order. A product listed in several
// collections is emitted once.
func (e *Exporter) collectByCollection(ctx context.Context, client *shopify.Client, tr feed.Transformer) []*feed.Item {
	var collections []shopify.Collection
	for c := range client.Collections(ctx) {
		collections = append(collections, c)
	}
	e.logger.Info("Found %d collections", len(collections))

	batches := make([]batch, len(collections))
	var g errgroup.Group
	g.SetLimit(e.settings.CollectionWorkers)
	for i, col := range collections {
		g.Go(func() error {
			e.logger.Info("Processing collection: %s", col.Title)
			b, err := e.mapCollection(ctx, client, tr, col.Handle)
			if err != nil {
				e.logger.Error("Error processing collection %s: %v", col.Handle, err)
				return nil
			}
			batches[i] = b
			return nil
		})
	}
	g.Wait()

	return merge(batches)
}

func (e *Exporter) mapCollection(ctx context.Context, client *shopify.Client, tr feed.Transformer, handle string) (b batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = batch{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	for p := range client.Products(ctx, handle) {
		b.productIDs = append(b.productIDs, p.ID)
		b.items = append(b.items, tr.MapProduct(&p))
	}
	return b, nil
}

func merge(batches []batch) []*feed.Item {
	seen := make(map[int64]struct{})
	var items []*feed.Item
	for _, b := range batches {
		for i, id := range b.productIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			items = append(items, b.items[i]...)
		}
	}
	return items
}
