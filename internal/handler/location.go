package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// LocationHandler exposes the device location used for grounded replies
type LocationHandler struct {
	locations *location.Service
	logger    *zap.Logger
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(locations *location.Service, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

// GetLocation returns the cached location, acquiring a fix if none is cached
// GET /api/v1/location
func (h *LocationHandler) GetLocation(c *gin.Context) {
	loc, err := h.locations.Resolve(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to acquire location")
		return
	}
	c.JSON(http.StatusOK, api.LocationResponse{Location: loc})
}

// SetLocation stores a fix reported by the presentation layer
// PUT /api/v1/location
func (h *LocationHandler) SetLocation(c *gin.Context) {
	var req model.Location
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, h.logger, err)
		return
	}
	if err := h.locations.Remember(req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.CodeValidation,
			Message: "Invalid location",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, api.LocationResponse{Location: req})
}
