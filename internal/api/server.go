package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopfeeds/internal/api/handlers"
	"shopfeeds/internal/api/middleware"
	"shopfeeds/internal/config"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the HTTP handlers need.
type Dependencies struct {
	Builds     handlers.BuildRepository
	Dispatcher handlers.Dispatcher
	Locker     storage.Locker
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, deps Dependencies) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	serviceHandler := handlers.NewServiceHandler()
	feedHandler := handlers.NewFeedHandler(deps.Builds, deps.Dispatcher, deps.Locker, cfg.BuildLockTTL, cfg.FeedsDir, logger)

	router.GET("/", serviceHandler.Info)
	router.GET("/health", serviceHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/feeds/:filename", feedHandler.Download)

	// Routes
	v1 := router.Group("/api/v1")
	{
		feeds := v1.Group("/feeds")
		{
			feeds.POST("", feedHandler.Create)
			feeds.GET("/status", feedHandler.Status)
			feeds.GET("/:id", feedHandler.Get)
		}
	}

	return &Server{
		config: cfg,
		logger: logger.Named("api"),
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
