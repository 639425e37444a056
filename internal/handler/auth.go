package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/pkg/api"
	"go.uber.org/zap"
)

// AuthHandler implements login and profile endpoints
type AuthHandler struct {
	accounts *account.Service
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *account.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// RequestCode sends the one-time code
// POST /api/v1/auth/code
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req api.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if err := h.accounts.RequestCode(c.Request.Context(), req.Identifier); err != nil {
		respondError(c, h.logger, err, "Failed to send code")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Verification code sent"})
}

// Verify checks the code and signs in a known user
// POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req api.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	user, err := h.accounts.Verify(c.Request.Context(), req.Identifier, req.Code)
	if errors.Is(err, account.ErrProfileRequired) {
		c.JSON(http.StatusOK, api.VerifyResponse{Status: api.VerifyProfileRequired})
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to verify code")
		return
	}
	c.JSON(http.StatusOK, api.VerifyResponse{Status: api.VerifySignedIn, User: user})
}

// Register completes sign-up for a verified identifier
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Identifier, account.ProfileInput{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		MedicalHistory: req.MedicalHistory,
		Language:       req.Language,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to register")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Logout signs the user out
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to log out")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProfile returns the signed-in user
// GET /api/v1/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.accounts.Current()
	if err != nil {
		respondError(c, h.logger, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile edits the signed-in user's profile
// PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req api.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), account.ProfileInput{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		MedicalHistory: req.MedicalHistory,
		Language:       req.Language,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetLanguage changes the reply language
// PUT /api/v1/profile/language
func (h *AuthHandler) SetLanguage(c *gin.Context) {
	var req api.LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}

	user, err := h.accounts.SetLanguage(c.Request.Context(), req.Language)
	if err != nil {
		respondError(c, h.logger, err, "Failed to set language")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListLanguages returns the supported languages
// GET /api/v1/languages
func (h *AuthHandler) ListLanguages(c *gin.Context) {
	resp := api.LanguagesResponse{Languages: make([]api.LanguageOption, 0, len(locale.Languages))}
	for _, l := range locale.Languages {
		resp.Languages = append(resp.Languages, api.LanguageOption{Code: l.Code, Name: l.Name})
	}
	c.JSON(http.StatusOK, resp)
}
