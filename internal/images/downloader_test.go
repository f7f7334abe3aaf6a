package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fields = feed.ImageFields{Primary: "image_link", Additional: "additional_image_link"}

func settings(workers int) config.FeedSettings {
	return config.FeedSettings{ImageWorkers: workers, ImageTimeout: 5 * time.Second, UserAgent: "shopfeeds-test"}
}

func newDownloader(workers int) *Downloader {
	return NewDownloader(settings(workers), logger.NewWithWriter("error", io.Discard))
}

func item(primary string, extra ...string) *feed.Item {
	it := feed.NewItem()
	it.SetText("image_link", primary)
	if len(extra) > 0 {
		it.Set("additional_image_link", feed.List(extra...))
	}
	return it
}

func TestDownloadAllDeduplicatesAndBoundsWorkers(t *testing.T) {
	var hits, inFlight, peak int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		assert.Equal(t, "shopfeeds-test", r.Header.Get("User-Agent"))
		w.Write([]byte("img:" + r.URL.Path))
	}))
	defer ts.Close()

	var items []*feed.Item
	for i := range 12 {
		items = append(items, item(fmt.Sprintf("%s/img/%d.jpg", ts.URL, i)))
	}
	// Shared images across variants are fetched once.
	items = append(items, item(ts.URL+"/img/0.jpg", ts.URL+"/img/1.jpg", ""))

	folder := filepath.Join(t.TempDir(), "shop_images")
	saved, err := newDownloader(4).DownloadAll(context.Background(), items, fields, folder)
	require.NoError(t, err)

	assert.Len(t, saved, 12)
	assert.EqualValues(t, 12, atomic.LoadInt32(&hits))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))

	body, err := os.ReadFile(filepath.Join(folder, "3.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img:/img/3.jpg", string(body))
	assert.Equal(t, "3.jpg", saved[ts.URL+"/img/3.jpg"])

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 12)
}

func TestDownloadAllNoImagesCreatesNothing(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "never")
	saved, err := newDownloader(4).DownloadAll(context.Background(), []*feed.Item{item("")}, fields, folder)
	require.NoError(t, err)
	assert.Empty(t, saved)

	_, err = os.Stat(folder)
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadAllSkipsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.jpg") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	items := []*feed.Item{item(ts.URL + "/a.jpg"), item(ts.URL + "/missing.jpg")}
	saved, err := newDownloader(2).DownloadAll(context.Background(), items, fields, t.TempDir())
	require.NoError(t, err)

	assert.Len(t, saved, 1)
	assert.Contains(t, saved, ts.URL+"/a.jpg")
}

func TestDownloadAllFolderError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := newDownloader(1).DownloadAll(context.Background(), []*feed.Item{item("https://cdn/a.jpg")}, fields, filepath.Join(file, "sub"))
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "pot.jpg", FileName("https://cdn.shopify.com/files/pot.jpg?v=123"))

	synth := FileName("https://cdn.example.com/")
	assert.True(t, strings.HasPrefix(synth, "image_"))
	assert.True(t, strings.HasSuffix(synth, ".jpg"))
	assert.Equal(t, synth, FileName("https://cdn.example.com/"), "synthesized names are deterministic")
	assert.NotEqual(t, synth, FileName("https://other.example.com/"))
}

type fakePutter struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	return &s3.PutObjectOutput{}, f.err
}

func TestMirrorUpload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	putter := &fakePutter{}
	folder := filepath.Join(t.TempDir(), "shop_images_20240101_000000")
	d := newDownloader(2).WithMirror(NewS3MirrorWithClient(putter, "bucket", "images"))

	saved, err := d.DownloadAll(context.Background(), []*feed.Item{item(ts.URL + "/a.jpg")}, fields, folder)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
	assert.Equal(t, []string{"bucket/images/shop_images_20240101_000000/a.jpg"}, putter.keys)
}

func TestMirrorFailureIsNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	putter := &fakePutter{err: fmt.Errorf("access denied")}
	d := newDownloader(1).WithMirror(NewS3MirrorWithClient(putter, "bucket", ""))

	saved, err := d.DownloadAll(context.Background(), []*feed.Item{item(ts.URL + "/a.jpg")}, fields, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
