// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/vitrine/internal/api"
	"github.com/stwalsh4118/vitrine/internal/config"
	"github.com/stwalsh4118/vitrine/internal/db"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/media"
	"github.com/stwalsh4118/vitrine/internal/middleware"
	"github.com/stwalsh4118/vitrine/internal/playback"
	"github.com/stwalsh4118/vitrine/internal/probecache"
	"github.com/stwalsh4118/vitrine/internal/schedule"
	"github.com/stwalsh4118/vitrine/internal/section"
)

const (
	healthPath  = "/api/health"
	metricsPath = "/metrics"
)

// Server represents the HTTP server
type Server struct {
	config         *config.Config
	db             *db.DB
	repos          *db.Repositories
	cache          *probecache.Cache
	sectionService *section.Service
	registry       *schedule.Registry
	router         *gin.Engine
	server         *http.Server
}

// New creates a new server instance. cache may be nil when the probe cache is disabled.
func New(cfg *config.Config, database *db.DB, cache *probecache.Cache) *Server {
	repos := db.NewRepositories(database)
	sectionService := section.NewService(repos)

	ffprobe := media.NewFFprobe(cfg.Playback.FFprobePath, cfg.Playback.ProbeTimeout)
	if err := ffprobe.Available(); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("ffprobe_path", cfg.Playback.FFprobePath).
			Msg("ffprobe unavailable, auto durations will use the fallback")
	}

	opts := []playback.ResolverOption{
		playback.WithFallback(cfg.Playback.FallbackDurationMs),
		playback.WithConcurrency(cfg.Playback.ProbeConcurrency),
	}
	if cache != nil {
		opts = append(opts, playback.WithCache(cache))
	}
	prober := media.NewBreaker(ffprobe, cfg.Playback.ProbeFailureThreshold, cfg.Playback.ProbeBreakerReset)
	resolver := playback.NewResolver(prober, opts...)

	registry := schedule.NewRegistry(sectionService, resolver,
		schedule.WithSettleTimeout(cfg.Playback.SettleTimeout))
	sectionService.SetListener(registry)

	return &Server{
		config:         cfg,
		db:             database,
		repos:          repos,
		cache:          cache,
		sectionService: sectionService,
		registry:       registry,
	}
}

// Handler returns the configured router, building it on first use
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestLogger(healthPath, metricsPath))
	s.router.Use(middleware.Metrics(metricsPath))
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default())

	s.router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	apiGroup := s.router.Group("/api")

	// A nil *probecache.Cache must not become a non-nil interface
	var cacheHealth api.HealthChecker
	if s.cache != nil {
		cacheHealth = s.cache
	}

	api.SetupHealthRoutes(apiGroup, s.db, cacheHealth)
	api.SetupSectionRoutes(apiGroup, s.sectionService)
	api.SetupStateRoutes(apiGroup, s.registry, s.config.Playback.TickInterval, s.config.Playback.SettleTimeout)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	// Cancel in-flight probes
	s.registry.Close()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close probe cache")
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
