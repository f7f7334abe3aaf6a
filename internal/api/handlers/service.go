package handlers

import (
	"net/http"
	"time"

	"shopfeeds/internal/worker/processors/export"

	"github.com/gin-gonic/gin"
)

type ServiceHandler struct {
	started time.Time
}

func NewServiceHandler() *ServiceHandler {
	return &ServiceHandler{started: time.Now()}
}

func (h *ServiceHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    "shopfeeds",
		"feed_types": export.FeedTypes,
		"endpoints": []string{
			"POST /api/v1/feeds",
			"GET /api/v1/feeds/:id",
			"GET /api/v1/feeds/status",
			"GET /feeds/:filename",
			"GET /health",
			"GET /metrics",
		},
	})
}

func (h *ServiceHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
