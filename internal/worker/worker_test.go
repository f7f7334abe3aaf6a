package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"shopfeeds/internal/logger"
	"shopfeeds/internal/storage"
	"shopfeeds/internal/worker/processors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []processors.Event
}

func (h *recordingHandler) Process(ctx context.Context, event processors.Event) error {
	h.events = append(h.events, event)
	return nil
}

func newTestWorker(h Handler) *Worker {
	return &Worker{logger: logger.NewWithWriter("error", io.Discard), handler: h}
}

func TestHandleDecodesEvent(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorker(h)

	msg := `{"type":"feed.build.requested","build_id":"b1","store_url":"https://shop.cz","feed_type":"zbozi","download_images":true,"timestamp":"2024-05-01T10:00:00Z"}`
	require.NoError(t, w.handle(context.Background(), []byte(msg)))

	require.Len(t, h.events, 1)
	ev := h.events[0]
	assert.Equal(t, processors.EventBuildRequested, ev.Type)
	assert.Equal(t, "b1", ev.BuildID)
	assert.Equal(t, "zbozi", ev.FeedType)
	assert.True(t, ev.DownloadImages)
	assert.Equal(t, 2024, ev.Timestamp.Year())
}

func TestHandleRejectsBadMessages(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorker(h)

	assert.Error(t, w.handle(context.Background(), []byte("{not json")))
	assert.Error(t, w.handle(context.Background(), []byte(`{"type":"feed.build.requested"}`)))
	assert.Empty(t, h.events)
}

func TestRejectedEventReleasesBuildLock(t *testing.T) {
	ctx := context.Background()
	locker := storage.NewMemoryLocker()
	key := storage.BuildKey("https://shop.cz", "bing")
	ok, err := locker.Acquire(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	h := &recordingHandler{}
	w := newTestWorker(h)
	w.locker = locker

	assert.Error(t, w.handle(ctx, []byte(`{"type":"feed.build.requested","store_url":"https://shop.cz","feed_type":"bing"}`)))
	assert.Empty(t, h.events)

	ok, err = locker.Acquire(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "lock of the rejected build is free again")
}

func TestRejectedEventWithoutStoreKeepsLocks(t *testing.T) {
	ctx := context.Background()
	locker := storage.NewMemoryLocker()
	key := storage.BuildKey("https://shop.cz", "bing")
	_, err := locker.Acquire(ctx, key, time.Hour)
	require.NoError(t, err)

	w := newTestWorker(&recordingHandler{})
	w.locker = locker

	assert.Error(t, w.handle(ctx, []byte(`{"type":"feed.build.requested","build_id":"b1","feed_type":"bing"}`)))

	ok, err := locker.Acquire(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, Brokers(" k1:9092, ,k2:9092"))
	assert.Nil(t, Brokers(""))
}
