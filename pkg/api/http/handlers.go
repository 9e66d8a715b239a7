package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/adapters/telegram"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleRoot answers uptime probes with a short status document
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "quizcast",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth handles health check requests. A degraded instance
// answers 503 so external monitors can restart it.
func (s *Server) handleHealth(c *gin.Context) {
	status := s.maintenance.Status()

	code := http.StatusOK
	state := "healthy"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    status,
	})
}

// handleDebug reports runtime internals for troubleshooting
func (s *Server) handleDebug(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	sessions, err := s.sessions.Count(c.Request.Context())
	if err != nil {
		s.logger.Warn("debug: failed to count sessions", zap.Error(err))
		sessions = -1
	}

	var username string
	if s.telegram != nil {
		username = s.telegram.Username()
	}

	c.JSON(http.StatusOK, gin.H{
		"bot_username":    username,
		"uptime":          time.Since(s.started).Round(time.Second).String(),
		"active_sessions": sessions,
		"goroutines":      runtime.NumGoroutine(),
		"memory": gin.H{
			"heap_alloc_mb": float64(mem.HeapAlloc) / (1024 * 1024),
			"sys_mb":        float64(mem.Sys) / (1024 * 1024),
			"num_gc":        mem.NumGC,
		},
		"go_version":  runtime.Version(),
		"settings":    s.settings,
		"maintenance": s.maintenance.Status(),
	})
}

// handleAnalytics serves aggregated usage counters
func (s *Server) handleAnalytics(c *gin.Context) {
	summary, err := s.analytics.Summary(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to build analytics summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "ANALYTICS_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleWebhook ingests Telegram updates in webhook mode
func (s *Server) handleWebhook(c *gin.Context) {
	var raw tgbotapi.Update
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_UPDATE",
				Message: err.Error(),
			},
		})
		return
	}

	update, ok := telegram.ConvertUpdate(raw)
	if !ok {
		// Updates without an actionable payload are acknowledged so
		// Telegram does not redeliver them.
		c.Status(http.StatusOK)
		return
	}

	if err := s.bot.HandleUpdate(c.Request.Context(), update); err != nil {
		s.logger.Error("failed to handle webhook update",
			zap.Int("update_id", update.UpdateID),
			zap.Error(err))
	}

	// Always 200: errors are handled internally, redelivery would not help
	c.Status(http.StatusOK)
}
