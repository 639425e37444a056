package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// DefaultAuditLimit is the number of audit entries returned by default
const DefaultAuditLimit = 50

// GDPRHandler implements data export, erasure and audit endpoints
type GDPRHandler struct {
	accounts *account.Service
	audit    *audit.Logger
	logger   *zap.Logger
}

// NewGDPRHandler creates a new GDPRHandler
func NewGDPRHandler(accounts *account.Service, auditLogger *audit.Logger, logger *zap.Logger) *GDPRHandler {
	return &GDPRHandler{
		accounts: accounts,
		audit:    auditLogger,
		logger:   logger,
	}
}

// DeleteUserData erases the signed-in user's data (right to be forgotten)
// DELETE /api/v1/account/data
func (h *GDPRHandler) DeleteUserData(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	h.logger.Info("processing user data deletion request (GDPR)",
		zap.String("user_id", userID),
		zap.String("ip", c.ClientIP()),
	)

	if err := h.accounts.DeleteData(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to delete user data")
		return
	}

	h.logger.Info("user data deleted successfully (GDPR)",
		zap.String("user_id", userID),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "User data deleted successfully",
		"user_id": userID,
	})
}

// ExportUserData returns all of the signed-in user's data (data portability)
// GET /api/v1/account/export
func (h *GDPRHandler) ExportUserData(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	h.logger.Info("processing user data export request (GDPR)",
		zap.String("user_id", userID),
		zap.String("ip", c.ClientIP()),
	)

	data, err := h.accounts.ExportData(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to export user data")
		return
	}

	filename := fmt.Sprintf("mediguide-export-%s.json", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// ListAudit returns the signed-in user's recent audit entries
// GET /api/v1/account/audit
func (h *GDPRHandler) ListAudit(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	limit := DefaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    api.CodeValidation,
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	entries, err := h.audit.Entries(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to read audit log")
		return
	}
	c.JSON(http.StatusOK, api.AuditResponse{Entries: entries})
}
