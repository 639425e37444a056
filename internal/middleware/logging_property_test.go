package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// All requests are logged with method, path, user ID and status
func TestProperty_RequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all requests are logged with required fields", prop.ForAll(
		func(method string, segment string, userID string) bool {
			core, logs := observer.New(zapcore.InfoLevel)
			logger := zap.New(core)

			path := "/" + segment
			router := gin.New()
			router.Use(RequestLoggingMiddleware(logger))
			router.Use(UserContextMiddleware(func() string { return userID }))
			router.Handle(method, path, func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			entries := logs.FilterMessage("Request completed").All()
			if len(entries) != 1 {
				t.Logf("expected one request log, got %d", len(entries))
				return false
			}

			fields := entries[0].ContextMap()
			wantUser := userID
			if wantUser == "" {
				wantUser = "anonymous"
			}
			return fields["method"] == method &&
				fields["path"] == path &&
				fields["user_id"] == wantUser &&
				fields["status"] == int64(http.StatusOK)
		},
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
		gen.Identifier(),
		gen.OneConstOf("", "ana@example.com", "+4915112345678"),
	))

	properties.TestingRun(t)
}

// Client and server errors are logged at warn and error level
func TestProperty_RequestLoggingLevels(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("log level follows status class", prop.ForAll(
		func(status int) bool {
			core, logs := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(RequestLoggingMiddleware(zap.New(core)))
			router.GET("/x", func(c *gin.Context) { c.Status(status) })

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			all := logs.All()
			if len(all) != 1 {
				return false
			}
			switch {
			case status >= 500:
				return all[0].Level == zapcore.ErrorLevel
			case status >= 400:
				return all[0].Level == zapcore.WarnLevel
			default:
				return all[0].Level == zapcore.InfoLevel
			}
		},
		gen.IntRange(200, 599),
	))

	properties.TestingRun(t)
}

func TestErrorLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(ErrorLoggingMiddleware(zap.New(core)))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.Status(http.StatusInternalServerError)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.FilterMessage("Request error occurred").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "store unavailable", fields["error"])
	assert.Equal(t, "/fail", fields["path"])
	assert.Contains(t, fields, "stack_trace")
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, api.CodeInternal, body.Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestSlowRequestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	router := gin.New()
	router.Use(SlowRequestLoggingMiddleware(zap.New(core), 10*time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	router.GET("/stream", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	router.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/slow", "/stream", "/fast"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("Slow request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/slow", entries[0].ContextMap()["path"])
}

func TestOpenAPIValidationMiddleware(t *testing.T) {
	doc, err := api.GetSwagger()
	require.NoError(t, err)
	validator, err := OpenAPIValidationMiddleware(doc, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.Use(validator)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	router.POST("/api/v1/sessions", ok)
	router.POST("/api/v1/symptoms", ok)
	router.POST("/api/v1/turns/voice", ok)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"valid mode", "/api/v1/sessions", `{"mode":"SKIN"}`, http.StatusNoContent},
		{"unknown mode", "/api/v1/sessions", `{"mode":"LAB_REPORT"}`, http.StatusBadRequest},
		{"missing mode", "/api/v1/sessions", `{}`, http.StatusBadRequest},
		{"valid symptom", "/api/v1/symptoms", `{"symptom":"Cough","severity":3}`, http.StatusNoContent},
		{"severity out of range", "/api/v1/symptoms", `{"symptom":"Cough","severity":11}`, http.StatusBadRequest},
		{"undocumented route", "/api/v1/turns/voice", `not json`, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusBadRequest {
				var body api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, api.CodeValidation, body.Code)
				assert.NotNil(t, body.Details)
			}
		})
	}
}
