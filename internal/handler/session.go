package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// SessionHandler implements the conversation history endpoints
type SessionHandler struct {
	sessions *session.Manager
	turns    *turn.Orchestrator
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *session.Manager, turns *turn.Orchestrator, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		turns:    turns,
		logger:   logger,
	}
}

// ListSessions returns the sessions index, most recent first
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	if h.sessions.User() == nil {
		respondError(c, h.logger, session.ErrNoUser, "Not signed in")
		return
	}

	sessions := h.sessions.Sessions()
	resp := api.SessionsResponse{Sessions: make([]api.SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, api.SessionSummary{
			ID:           s.ID,
			Mode:         s.Mode,
			Title:        s.Title,
			Preview:      s.Preview,
			Timestamp:    s.Timestamp,
			MessageCount: len(s.Messages),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// CreateSession opens a new conversation in the requested mode
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req api.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.CodeValidation,
			Message: "Unknown mode",
			Details: stringPtr(string(req.Mode)),
		})
		return
	}

	id, err := h.sessions.CreateSession(c.Request.Context(), req.Mode)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create session")
		return
	}

	h.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("mode", string(req.Mode)),
	)
	c.JSON(http.StatusCreated, api.SessionResponse{SessionID: id})
}

// SelectSession makes a past session the active conversation
// POST /api/v1/sessions/:id/select
func (h *SessionHandler) SelectSession(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if err := h.sessions.SelectSession(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to select session")
		return
	}
	h.Conversation(c)
}

// ResetSession returns to mode selection without deleting anything
// POST /api/v1/sessions/reset
func (h *SessionHandler) ResetSession(c *gin.Context) {
	h.sessions.Reset()
	c.Status(http.StatusNoContent)
}

// Conversation returns the active conversation with its mode copy
// GET /api/v1/conversation
func (h *SessionHandler) Conversation(c *gin.Context) {
	user := h.sessions.User()
	if user == nil {
		respondError(c, h.logger, session.ErrNoUser, "Not signed in")
		return
	}

	conv := h.sessions.Active()
	resp := api.ConversationResponse{
		SessionID: conv.SessionID,
		Mode:      conv.Mode,
		Messages:  conv.Messages,
		InFlight:  h.turns.InFlight(),
	}
	if conv.Mode != "" {
		if text, err := locale.Mode(user.Language, conv.Mode); err == nil {
			resp.ModeTitle = text.Title
			resp.Tips = text.Tips[:]
		}
	}
	c.JSON(http.StatusOK, resp)
}
