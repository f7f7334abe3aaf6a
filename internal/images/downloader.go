package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"

	"github.com/google/uuid"
)

const progressEvery = 10

// Mirror receives a copy of every downloaded image.
type Mirror interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Downloader fetches feed images into a local folder with a fixed pool of
// workers.
type Downloader struct {
	httpClient *http.Client
	workers    int
	timeout    time.Duration
	userAgent  string
	mirror     Mirror
	logger     *logger.Logger
}

type result struct {
	url  string
	name string
	err  error
}

func NewDownloader(settings config.FeedSettings, log *logger.Logger) *Downloader {
	settings = settings.WithDefaults()
	return &Downloader{
		httpClient: &http.Client{},
		workers:    settings.ImageWorkers,
		timeout:    settings.ImageTimeout,
		userAgent:  settings.UserAgent,
		logger:     log.Named("images"),
	}
}

// WithMirror uploads every saved image to m as well.
func (d *Downloader) WithMirror(m Mirror) *Downloader {
	d.mirror = m
	return d
}

func (d *Downloader) WithHTTPClient(c *http.Client) *Downloader {
	d.httpClient = c
	return d
}

// DownloadAll downloads the distinct primary and additional images of items
// into folder and returns the local file name of each URL that succeeded. The
// folder is only created when there is at least one URL.
func (d *Downloader) DownloadAll(ctx context.Context, items []*feed.Item, fields feed.ImageFields, folder string) (map[string]string, error) {
	urls := uniqueURLs(items, fields)
	saved := make(map[string]string, len(urls))
	if len(urls) == 0 {
		return saved, nil
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return saved, fmt.Errorf("failed to create image folder: %w", err)
	}

	workers := d.workers
	if workers < 1 {
		workers = 1
	}
	d.logger.Info("Downloading %d images to %s with %d workers", len(urls), folder, workers)

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				name, err := d.download(ctx, u, folder)
				results <- result{url: u, name: name, err: err}
			}
		}()
	}

	go func() {
		defer close(results)
		defer wg.Wait()
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	var done, failed int
	for r := range results {
		done++
		if r.err != nil {
			failed++
			monitoring.ImagesDownloaded.WithLabelValues("failure").Inc()
			d.logger.Warn("Failed to download %s: %v", r.url, r.err)
		} else {
			monitoring.ImagesDownloaded.WithLabelValues("success").Inc()
			saved[r.url] = r.name
		}
		if done%progressEvery == 0 || done == len(urls) {
			d.logger.Info("Downloaded %d/%d images (%d failed)", done, len(urls), failed)
		}
	}

	if err := ctx.Err(); err != nil {
		return saved, fmt.Errorf("image download interrupted: %w", err)
	}
	return saved, nil
}

func (d *Downloader) download(ctx context.Context, rawURL, folder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	name := FileName(rawURL)
	dest := filepath.Join(folder, name)
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	if d.mirror != nil {
		key := path.Join(filepath.Base(folder), name)
		if err := d.mirror.Put(ctx, key, body, resp.Header.Get("Content-Type")); err != nil {
			d.logger.Warn("Failed to mirror %s: %v", key, err)
		}
	}
	return name, nil
}

// FileName derives the local file name of an image URL from its last path
// segment. URLs without one get a stable synthesized name.
func FileName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		switch name := path.Base(u.Path); name {
		case "", ".", "/", "..":
		default:
			return name
		}
	}
	return "image_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String() + ".jpg"
}

func uniqueURLs(items []*feed.Item, fields feed.ImageFields) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, it := range items {
		for _, u := range it.ImageURLs(fields) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}
