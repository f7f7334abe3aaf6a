package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfeeds/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerExposesCollectors(t *testing.T) {
	FeedBuilds.WithLabelValues("zbozi", "completed").Inc()
	s := NewServer(":0", logger.NewWithWriter("error", io.Discard))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shopfeeds_builds_total{feed="zbozi",status="completed"}`)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer(":0", logger.NewWithWriter("error", io.Discard))
	assert.NoError(t, s.Stop(context.Background()))
}
