package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/store"
	"go.uber.org/zap"
)

// Version is reported by the health check
const Version = "1.0.0"

// StatusHandler implements the service health check
type StatusHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(s store.Store, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{store: s, logger: logger}
}

// GetHealth reports whether the persisted store is reachable
// GET /health
func (h *StatusHandler) GetHealth(c *gin.Context) {
	_, err := h.store.Get(c.Request.Context(), store.ActiveUserKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("health check failed: store unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"store":  "disconnected",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"store":   "connected",
		"service": "mediguide-assistant",
		"version": Version,
	})
}
