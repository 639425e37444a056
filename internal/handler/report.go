package handler

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/report"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// ReportHandler implements consultation report endpoints
type ReportHandler struct {
	reports  *report.Service
	sessions *session.Manager
	accounts *account.Service
	tracker  *tracker.Service
	logger   *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *report.Service, sessions *session.Manager, accounts *account.Service, tracker *tracker.Service, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		sessions: sessions,
		accounts: accounts,
		tracker:  tracker,
		logger:   logger,
	}
}

// GenerateReport builds a doctor report from the active conversation and the
// last month of symptom logs
// POST /api/v1/report
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	user, err := h.accounts.Current()
	if err != nil {
		respondError(c, h.logger, err, "Not signed in")
		return
	}

	conv := h.sessions.Active()
	if conv.SessionID == "" {
		respondError(c, h.logger, session.ErrNoActiveSession, "No active conversation")
		return
	}

	ctx := c.Request.Context()
	rep, err := h.reports.Generate(ctx, report.Request{
		Patient:     *user,
		Mode:        conv.Mode,
		Language:    user.Language,
		Messages:    conv.Messages,
		SymptomLogs: h.tracker.Logs(ctx, user.Identifier, tracker.Filter{Range: tracker.RangeMonth}),
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate report")
		return
	}

	c.JSON(http.StatusOK, api.ReportResponse{
		ID:       rep.ID,
		Filename: rep.Filename,
		Summary:  rep.Summary,
		BlobName: rep.BlobName,
		PDF:      rep.PDF,
	})
}

// ListReports returns the user's archived reports
// GET /api/v1/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	names, err := h.reports.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list reports")
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, api.ReportsResponse{Reports: names})
}

// DownloadReport returns an archived report PDF
// GET /api/v1/reports/download?name=<blob name>
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.CodeValidation,
			Message: "name is required",
		})
		return
	}

	data, err := h.reports.Download(c.Request.Context(), userID, name)
	if err != nil {
		respondError(c, h.logger, err, "Failed to download report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(name)))
	c.Data(http.StatusOK, "application/pdf", data)
}

// ShareConversation returns the active conversation as share text
// GET /api/v1/share
func (h *ReportHandler) ShareConversation(c *gin.Context) {
	if _, ok := currentUser(c, h.accounts, h.logger); !ok {
		return
	}
	conv := h.sessions.Active()
	if conv.SessionID == "" {
		respondError(c, h.logger, session.ErrNoActiveSession, "No active conversation")
		return
	}
	c.JSON(http.StatusOK, report.ShareText(conv.Messages))
}
