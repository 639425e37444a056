package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// MaxAudioBytes bounds an uploaded voice recording
const MaxAudioBytes = 10 << 20

// TurnHandler implements the conversational turn endpoints. Replies are
// streamed as server-sent events.
type TurnHandler struct {
	turns    *turn.Orchestrator
	speech   gateway.Synthesizer
	accounts *account.Service
	logger   *zap.Logger
}

// NewTurnHandler creates a new TurnHandler
func NewTurnHandler(turns *turn.Orchestrator, speech gateway.Synthesizer, accounts *account.Service, logger *zap.Logger) *TurnHandler {
	return &TurnHandler{
		turns:    turns,
		speech:   speech,
		accounts: accounts,
		logger:   logger,
	}
}

// SubmitTurn submits a text and/or image turn
// POST /api/v1/turns
func (h *TurnHandler) SubmitTurn(c *gin.Context) {
	var req api.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	stream := newEventStream(c)
	err := h.turns.SubmitTurn(c.Request.Context(), turn.Input{
		Text:     req.Text,
		Image:    req.Image,
		Focus:    req.Focus,
		Location: req.Location,
	}, stream)
	h.finish(c, stream, err, "Failed to submit turn")
}

// SubmitVoice transcribes an uploaded recording and submits it as a turn
// POST /api/v1/turns/voice (multipart field "audio")
func (h *TurnHandler) SubmitVoice(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, MaxAudioBytes+1))
	if err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if len(audio) > MaxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Code:    api.CodeValidation,
			Message: "Recording too large",
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	h.logger.Info("voice turn received",
		zap.Int("audio_size_bytes", len(audio)),
		zap.String("mime_type", mimeType),
	)

	stream := newEventStream(c)
	_, err = h.turns.SubmitVoice(c.Request.Context(), audio, mimeType, stream)
	h.finish(c, stream, err, "Failed to submit voice turn")
}

// FindCare asks for nearby care, starting a conversation if none is active
// POST /api/v1/care
func (h *TurnHandler) FindCare(c *gin.Context) {
	var req api.CareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidBody(c, h.logger, err)
			return
		}
	}

	stream := newEventStream(c)
	err := h.turns.FindCare(c.Request.Context(), req.Location, stream)
	h.finish(c, stream, err, "Failed to find care")
}

// SynthesizeSpeech reads a reply aloud in the user's language
// POST /api/v1/speech
func (h *TurnHandler) SynthesizeSpeech(c *gin.Context) {
	var req api.SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	language := locale.DefaultCode
	if user, err := h.accounts.Current(); err == nil {
		language = user.Language
	}

	audio, err := h.speech.SynthesizeSpeech(c.Request.Context(), req.Text, language)
	if err != nil {
		respondError(c, h.logger, err, "Failed to synthesize speech")
		return
	}
	if len(audio) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, gateway.AudioContentType(audio), audio)
}

// finish maps the turn outcome onto the response. Before any event the
// outcome is an ordinary status; after, the stream already carries it.
func (h *TurnHandler) finish(c *gin.Context, stream *eventStream, err error, message string) {
	if !stream.Started() {
		if err != nil {
			if turn.Rejected(err) {
				h.logger.Info("turn rejected", zap.Error(err))
			}
			respondError(c, h.logger, err, message)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		h.logger.Warn("turn failed", zap.Error(err))
	}
	stream.finish(err)
}
