package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/internal/application/bot"
	"github.com/aescanero/quizcast/internal/application/maintenance"
	"github.com/aescanero/quizcast/pkg/adapters/telegram"
	"github.com/aescanero/quizcast/pkg/ports"
)

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	server      *http.Server
	bot         *bot.Manager
	maintenance *maintenance.Runner
	analytics   ports.AnalyticsStore
	sessions    ports.SessionStore
	telegram    *telegram.Client
	settings    map[string]interface{}
	logger      *zap.Logger
	started     time.Time
}

// Config holds HTTP server configuration
type Config struct {
	Port        int
	Bot         *bot.Manager
	Maintenance *maintenance.Runner
	Analytics   ports.AnalyticsStore
	Sessions    ports.SessionStore
	Telegram    *telegram.Client

	// Settings is echoed by /debug; callers must not include secrets.
	Settings map[string]interface{}

	Logger *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	// Set Gin mode based on logger
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:      router,
		bot:         cfg.Bot,
		maintenance: cfg.Maintenance,
		analytics:   cfg.Analytics,
		sessions:    cfg.Sessions,
		telegram:    cfg.Telegram,
		settings:    cfg.Settings,
		logger:      cfg.Logger,
		started:     time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Landing page for uptime probes
	s.router.GET("/", s.handleRoot)

	// Health check (HEAD kept for external monitors)
	s.router.GET("/health", s.handleHealth)
	s.router.HEAD("/health", s.handleHealth)

	// Diagnostics
	s.router.GET("/debug", s.handleDebug)
	s.router.GET("/analytics", s.handleAnalytics)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Telegram webhook ingestion
	s.router.POST("/webhook", s.handleWebhook)
}

// SetupWebSocket adds the live event stream handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleEventStream(*gin.Context)
}) {
	s.router.GET("/debug/live", handler.HandleEventStream)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
