package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/report"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// errorClass maps a known error to its HTTP status and error code
type errorClass struct {
	status int
	code   string
}

var errorClasses = []struct {
	targets []error
	class   errorClass
}{
	{
		targets: []error{account.ErrNotSignedIn, session.ErrNoUser},
		class:   errorClass{http.StatusUnauthorized, api.CodeUnauthorized},
	},
	{
		targets: []error{
			account.ErrEmptyIdentifier, account.ErrInvalidCode, account.ErrInvalidProfile, account.ErrUnknownLanguage,
			turn.ErrEmptyInput, turn.ErrInputTooLong, turn.ErrInvalidImage,
			tracker.ErrEmptySymptom, tracker.ErrInvalidSeverity, tracker.ErrEmptyMedication, tracker.ErrInvalidQuantity,
		},
		class: errorClass{http.StatusBadRequest, api.CodeValidation},
	},
	{
		targets: []error{
			session.ErrSessionNotFound, session.ErrMessageNotFound, tracker.ErrNotFound, report.ErrForeignReport,
		},
		class: errorClass{http.StatusNotFound, api.CodeNotFound},
	},
	{
		targets: []error{
			account.ErrCodeNotSent, account.ErrNotVerified,
			session.ErrNoActiveSession, turn.ErrNoActiveMode, turn.ErrTurnInFlight,
		},
		class: errorClass{http.StatusConflict, api.CodeConflict},
	},
	{
		targets: []error{report.ErrTooShort, turn.ErrEmptyTranscript},
		class:   errorClass{http.StatusUnprocessableEntity, api.CodeValidation},
	},
	{
		targets: []error{location.ErrPermissionDenied},
		class:   errorClass{http.StatusForbidden, api.CodeUnauthorized},
	},
	{
		targets: []error{
			gateway.ErrUnavailable, report.ErrStorageUnavailable, location.ErrUnavailable, location.ErrTimeout,
		},
		class: errorClass{http.StatusServiceUnavailable, api.CodeUnavailable},
	},
}

func classify(err error) (errorClass, bool) {
	for _, c := range errorClasses {
		for _, target := range c.targets {
			if errors.Is(err, target) {
				return c.class, true
			}
		}
	}
	return errorClass{http.StatusInternalServerError, api.CodeInternal}, false
}

// respondError writes the error body for err. Known errors carry their own
// message; anything else is reported as message with err in the details.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	class, known := classify(err)
	if !known {
		logger.Error(message,
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(err)
		c.JSON(class.status, api.ErrorResponse{
			Code:    class.code,
			Message: message,
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.JSON(class.status, api.ErrorResponse{
		Code:    class.code,
		Message: err.Error(),
	})
}

// invalidBody reports a request body that failed to bind
func invalidBody(c *gin.Context, logger *zap.Logger, err error) {
	logger.Error("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Code:    api.CodeValidation,
		Message: "Invalid request body",
		Details: stringPtr(err.Error()),
	})
}

// pathID binds the id path parameter
func pathID(c *gin.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

// currentUser returns the signed-in user or writes a 401
func currentUser(c *gin.Context, accounts *account.Service, logger *zap.Logger) (string, bool) {
	user, err := accounts.Current()
	if err != nil {
		respondError(c, logger, err, "Not signed in")
		return "", false
	}
	return user.Identifier, true
}
