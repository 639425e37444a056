package integration_tests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/app"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/azure"
	"github.com/mediguide/assistant/internal/config"
	"github.com/mediguide/assistant/internal/handler"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/pdf"
	"github.com/mediguide/assistant/internal/report"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/mediguide/assistant/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const identifier = "ana@example.com"

// stack is the whole service as main assembles it, with the mock model backend
type stack struct {
	router  *gin.Engine
	cleanup func()
}

func newStack(t *testing.T, storeCfg config.StoreConfig, blobs azure.ReportStorage) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	cfg := &config.Config{
		Server:  config.ServerConfig{Environment: "test"},
		Store:   storeCfg,
		Gateway: config.GatewayConfig{Backend: config.ReplyMock},
	}

	kv, closeStore, err := app.OpenStore(ctx, cfg.Store, logger)
	require.NoError(t, err, "Should be able to open the store")

	gw, err := app.NewGateway(ctx, cfg, logger)
	require.NoError(t, err, "Should be able to build the gateway")

	auditLogger := audit.NewLogger(kv, logger)
	sessions := session.NewManager(kv, logger)
	accounts := account.NewService(kv, sessions, auditLogger, logger)
	locations := location.NewService(app.NewLocator(cfg.Location), logger)
	tracks := tracker.NewService(kv, auditLogger, logger)
	turns := turn.NewOrchestrator(sessions, gw, locations, logger)
	reports := report.NewService(gw, pdf.NewPDFGenerator(logger), blobs, auditLogger, logger)

	_, err = accounts.Restore(ctx)
	require.NoError(t, err, "Should be able to restore the active user")

	router, err := app.NewRouter(cfg.Server, handler.Handlers{
		Status:     handler.NewStatusHandler(kv, logger),
		Auth:       handler.NewAuthHandler(accounts, logger),
		GDPR:       handler.NewGDPRHandler(accounts, auditLogger, logger),
		Session:    handler.NewSessionHandler(sessions, turns, logger),
		Turn:       handler.NewTurnHandler(turns, gw, accounts, logger),
		Location:   handler.NewLocationHandler(locations, logger),
		Report:     handler.NewReportHandler(reports, sessions, accounts, tracks, logger),
		Health:     handler.NewHealthHandler(tracks, accounts, logger),
		Medication: handler.NewMedicationHandler(tracks, accounts, logger),
	}, func() string {
		if user := sessions.User(); user != nil {
			return user.Identifier
		}
		return ""
	}, logger)
	require.NoError(t, err, "Should be able to build the router")

	return &stack{router: router, cleanup: closeStore}
}

func (s *stack) call(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// runConsultation drives a full consultation and returns the session id
func runConsultation(t *testing.T, s *stack) string {
	t.Helper()

	t.Log("Step 1: Signing up")
	w := s.call(t, http.MethodPost, "/api/v1/auth/code", api.RequestCodeRequest{Identifier: identifier})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	w = s.call(t, http.MethodPost, "/api/v1/auth/verify", api.VerifyRequest{Identifier: identifier, Code: account.DevCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.call(t, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
		Identifier:     identifier,
		Name:           "Ana Kovacs",
		Age:            "34",
		MedicalHistory: "Asthma",
		Language:       "de",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Log("Step 2: Opening a symptom consultation")
	w = s.call(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{Mode: model.ModeSymptom})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Log("Step 3: Submitting a turn")
	w = s.call(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "I have had a dry cough for three days"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "event:resolved")

	t.Log("Step 4: Logging a symptom")
	w = s.call(t, http.MethodPost, "/api/v1/symptoms", tracker.SymptomInput{Symptom: "Cough", Severity: 4, Duration: "3 days"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Log("Step 5: Generating the doctor report")
	w = s.call(t, http.MethodPost, "/api/v1/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep api.ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.True(t, bytes.HasPrefix(rep.PDF, []byte("%PDF")), "Report should be a PDF")
	assert.True(t, strings.HasSuffix(rep.Filename, time.Now().Format("20060102")+".pdf"))

	return created.SessionID
}

func assertRestored(t *testing.T, s *stack, sessionID string) {
	t.Helper()

	w := s.call(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code, "Active user should survive a restart")
	var user model.UserProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Ana Kovacs", user.Name)
	assert.Equal(t, "Deutsch", user.Language)

	w = s.call(t, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.SessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, sessionID, list.Sessions[0].ID)
	assert.Equal(t, 3, list.Sessions[0].MessageCount, "greeting, question and reply")

	w = s.call(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 3)
	for _, msg := range conv.Messages {
		assert.False(t, msg.IsPending(), "No placeholder should be persisted")
	}

	w = s.call(t, http.MethodGet, "/api/v1/symptoms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs api.SymptomLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, "Cough", logs.Logs[0].Symptom)
}

// TestConsultationSurvivesRestart runs a consultation against the SQLite store,
// then reopens the store as a fresh process would
func TestConsultationSurvivesRestart(t *testing.T) {
	storeCfg := config.StoreConfig{
		Backend:       config.StoreSQLite,
		Path:          filepath.Join(t.TempDir(), "mediguide.db"),
		EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32)),
	}
	blobs := azure.NewMockBlobStorageClient(zap.NewNop())

	first := newStack(t, storeCfg, blobs)
	sessionID := runConsultation(t, first)
	first.cleanup()

	raw, err := os.ReadFile(storeCfg.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dry cough", "Stored values should be encrypted")

	second := newStack(t, storeCfg, blobs)
	defer second.cleanup()
	assertRestored(t, second, sessionID)

	w := second.call(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reports api.ReportsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports.Reports, 1, "Archived report should be listed")
}

// TestConsultationOnPostgres runs the same flow against the PostgreSQL store
func TestConsultationOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbURL, cleanup := setupTestDatabase(t)
	defer cleanup()

	storeCfg := config.StoreConfig{
		Backend:  config.StorePostgres,
		Postgres: config.PostgresConfig{URL: dbURL, Table: "client_kv_it"},
	}
	blobs := azure.NewMockBlobStorageClient(zap.NewNop())

	first := newStack(t, storeCfg, blobs)
	sessionID := runConsultation(t, first)
	first.cleanup()

	second := newStack(t, storeCfg, blobs)
	defer second.cleanup()
	assertRestored(t, second, sessionID)

	t.Log("Erasing all user data")
	w := second.call(t, http.MethodDelete, "/api/v1/account/data", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	third := newStack(t, storeCfg, blobs)
	defer third.cleanup()
	w = third.call(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "Erased user should stay signed out")
}

// setupTestDatabase uses TEST_DATABASE_URL when set and a PostgreSQL
// container otherwise
func setupTestDatabase(t *testing.T) (string, func()) {
	t.Helper()
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		t.Logf("Connecting to database: %s", dbURL)
		return dbURL, func() {}
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("mediguide_it"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Should be able to start PostgreSQL container")

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dbURL, func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}
