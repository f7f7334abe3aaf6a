package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
)

// Client reads a store's catalog through its public, unauthenticated JSON
// endpoints. Catalog reads are best-effort: a page that keeps failing after
// all retries ends the sequence instead of returning an error.
type Client struct {
	storeURL   string
	settings   config.FeedSettings
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(storeURL string, settings config.FeedSettings, logger *logger.Logger) *Client {
	return &Client{
		storeURL: NormalizeStoreURL(storeURL),
		settings: settings.WithDefaults(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("shopify"),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// StoreURL returns the normalized base URL of the store.
func (c *Client) StoreURL() string {
	return c.storeURL
}

// NormalizeStoreURL adds an https scheme when missing and strips trailing
// slashes.
func NormalizeStoreURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}

// Collections lists every collection of the store, page by page.
func (c *Client) Collections(ctx context.Context) iter.Seq[Collection] {
	return paginate[Collection](ctx, c, "collections", "collections", "/collections.json", nil)
}

// Products lists the products of a collection, or of the whole store when
// collectionHandle is empty.
func (c *Client) Products(ctx context.Context, collectionHandle string) iter.Seq[Product] {
	if collectionHandle == "" {
		query := url.Values{"limit": {strconv.Itoa(c.settings.PageLimit)}}
		return paginate[Product](ctx, c, "products", "products", "/products.json", query)
	}
	path := "/collections/" + url.PathEscape(collectionHandle) + "/products.json"
	return paginate[Product](ctx, c, "collection_products", "products", path, nil)
}

// ShopInfo derives the shop header from the first product's vendor since the
// public API exposes no store name. It reports false when the store has no
// products or the request failed.
func (c *Client) ShopInfo(ctx context.Context) (ShopInfo, bool) {
	var body envelope
	endpoint := c.endpoint("/products.json", url.Values{"limit": {"1"}})
	if !c.getJSON(ctx, "shop_info", endpoint, &body) {
		return ShopInfo{}, false
	}
	products := decodeRecords[Product](c, "shop_info", body, "products")
	if len(products) == 0 {
		return ShopInfo{}, false
	}
	return ShopInfo{
		Name:        products[0].Vendor,
		Description: "",
		URL:         c.storeURL,
	}, true
}

// envelope is a catalog page body. Its record list is decoded one record at
// a time so a malformed record costs only itself.
type envelope map[string]json.RawMessage

// paginate yields the records under key of page 1, 2, ... until a page comes
// back empty or cannot be fetched. Ranging over the sequence again restarts
// at page 1.
func paginate[T any](ctx context.Context, c *Client, resource, key, path string, query url.Values) iter.Seq[T] {
	return func(yield func(T) bool) {
		total := 0
		for page := 1; ; page++ {
			q := url.Values{}
			for k, v := range query {
				q[k] = v
			}
			q.Set("page", strconv.Itoa(page))

			c.logger.Info("Fetching %s (page %d)", resource, page)
			var body envelope
			if !c.getJSON(ctx, resource, c.endpoint(path, q), &body) {
				break
			}
			raw, ok := rawRecords(c, resource, body, key)
			if !ok || len(raw) == 0 {
				break
			}
			batch := decodeEach[T](c, resource, raw)
			c.logger.Info("Found %d %s on page %d", len(batch), resource, page)
			total += len(batch)

			for _, item := range batch {
				if !yield(item) {
					return
				}
			}
		}
		c.logger.Info("Total %s found: %d", resource, total)
	}
}

func rawRecords(c *Client, resource string, body envelope, key string) ([]json.RawMessage, bool) {
	data, ok := body[key]
	if !ok {
		return nil, true
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Error("Unexpected %s list: %v", resource, err)
		return nil, false
	}
	return raw, true
}

func decodeRecords[T any](c *Client, resource string, body envelope, key string) []T {
	raw, _ := rawRecords(c, resource, body, key)
	return decodeEach[T](c, resource, raw)
}

// decodeEach skips records that do not decode.
func decodeEach[T any](c *Client, resource string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			c.logger.Warn("Skipping malformed %s record #%d: %v", resource, i, err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.storeURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON performs a GET with the fixed-delay retry policy and decodes the
// body into target. It returns false once every attempt has failed.
func (c *Client) getJSON(ctx context.Context, resource, endpoint string, target interface{}) bool {
	attempts := c.settings.MaxRetries
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Debug("Making request to %s (attempt %d/%d)", endpoint, attempt, attempts)

		err := c.fetch(ctx, endpoint, target)
		if err == nil {
			monitoring.CatalogRequests.WithLabelValues(resource, "success").Inc()
			return true
		}

		c.logger.Warn("Request failed (attempt %d/%d): %v", attempt, attempts, err)
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			monitoring.CatalogRequests.WithLabelValues(resource, "retry").Inc()
			c.logger.Info("Retrying in %s...", c.settings.RetryDelay)
			if !wait(ctx, c.settings.RetryDelay) {
				break
			}
		}
	}

	monitoring.CatalogRequests.WithLabelValues(resource, "exhausted").Inc()
	c.logger.Error("Failed to retrieve data from %s after %d attempts", endpoint, attempts)
	return false
}

func (c *Client) fetch(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
