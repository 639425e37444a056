package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// HealthHandler implements the symptom log endpoints
type HealthHandler struct {
	tracker  *tracker.Service
	accounts *account.Service
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(tracker *tracker.Service, accounts *account.Service, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		tracker:  tracker,
		accounts: accounts,
		logger:   logger,
	}
}

type symptomQuery struct {
	tracker.Filter
	Order tracker.OverviewOrder `form:"order"`
}

// ListSymptoms returns filtered log entries with stats and the per-symptom overview
// GET /api/v1/symptoms?symptom=&range=all|7|30&order=severity|frequency
func (h *HealthHandler) ListSymptoms(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	var q symptomQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if q.Order == "" {
		q.Order = tracker.BySeverity
	}

	ctx := c.Request.Context()
	logs := h.tracker.Logs(ctx, userID, q.Filter)
	symptoms := h.tracker.Symptoms(ctx, userID)
	if symptoms == nil {
		symptoms = []string{}
	}

	c.JSON(http.StatusOK, api.SymptomLogResponse{
		Logs:     logs,
		Stats:    tracker.Summarize(logs),
		Symptoms: symptoms,
		Overview: tracker.Overview(logs, q.Order),
	})
}

// AddSymptom records a symptom log entry
// POST /api/v1/symptoms
func (h *HealthHandler) AddSymptom(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	var req tracker.SymptomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	entry, err := h.tracker.AddLog(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to log symptom")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// DeleteSymptom removes a log entry
// DELETE /api/v1/symptoms/:id
func (h *HealthHandler) DeleteSymptom(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}
	id, err := pathID(c)
	if err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	if err := h.tracker.DeleteLog(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err, "Failed to delete symptom log")
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportSymptoms downloads the whole log as an XLSX workbook
// GET /api/v1/symptoms/export
func (h *HealthHandler) ExportSymptoms(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	logs := h.tracker.Logs(c.Request.Context(), userID, tracker.Filter{Range: tracker.RangeAll})
	data, err := tracker.ExportXLSX(logs, time.Local)
	if err != nil {
		respondError(c, h.logger, err, "Failed to export symptom log")
		return
	}

	filename := fmt.Sprintf("symptom-log-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
