package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// MedicationHandler implements medication refill reminder endpoints
type MedicationHandler struct {
	tracker  *tracker.Service
	accounts *account.Service
	logger   *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(tracker *tracker.Service, accounts *account.Service, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		tracker:  tracker,
		accounts: accounts,
		logger:   logger,
	}
}

// ListReminders returns reminders with their refill countdown
// GET /api/v1/reminders
func (h *MedicationHandler) ListReminders(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	reminders := h.tracker.Reminders(c.Request.Context(), userID)
	if reminders == nil {
		reminders = []tracker.ReminderStatus{}
	}
	c.JSON(http.StatusOK, api.RemindersResponse{Reminders: reminders})
}

// AddReminder creates a refill reminder
// POST /api/v1/reminders
func (h *MedicationHandler) AddReminder(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}

	var req tracker.ReminderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	reminder, err := h.tracker.AddReminder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add reminder")
		return
	}

	h.logger.Info("medication reminder created",
		zap.String("reminder_id", reminder.ID),
		zap.String("user_id", userID),
	)
	c.JSON(http.StatusCreated, reminder)
}

// DeleteReminder removes a reminder
// DELETE /api/v1/reminders/:id
func (h *MedicationHandler) DeleteReminder(c *gin.Context) {
	userID, ok := currentUser(c, h.accounts, h.logger)
	if !ok {
		return
	}
	id, err := pathID(c)
	if err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	if err := h.tracker.DeleteReminder(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err, "Failed to delete reminder")
		return
	}
	c.Status(http.StatusNoContent)
}
