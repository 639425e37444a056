package handler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/azure"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/pdf"
	"github.com/mediguide/assistant/internal/report"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/mediguide/assistant/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const reply = "Rest and drink fluids.\n---METADATA---\n" +
	`{"urgency":"LOW","reasoning":"mild symptoms","followUpQuestions":["Any fever?"]}`

type testServer struct {
	router  *gin.Engine
	backend *gateway.MockService
	store   *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	s := store.NewMemoryStore()
	backend := gateway.NewMockService(reply)
	backend.Summary = "Mild cough for two days."

	auditLogger := audit.NewLogger(s, logger)
	sessions := session.NewManager(s, logger)
	accounts := account.NewService(s, sessions, auditLogger, logger)
	locations := location.NewService(location.StaticLocator{}, logger)
	tracks := tracker.NewService(s, auditLogger, logger)
	turns := turn.NewOrchestrator(sessions, backend, locations, logger)
	reports := report.NewService(backend, pdf.NewPDFGenerator(logger), azure.NewMockBlobStorageClient(logger), auditLogger, logger)

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Status:     NewStatusHandler(s, logger),
		Auth:       NewAuthHandler(accounts, logger),
		GDPR:       NewGDPRHandler(accounts, auditLogger, logger),
		Session:    NewSessionHandler(sessions, turns, logger),
		Turn:       NewTurnHandler(turns, backend, accounts, logger),
		Location:   NewLocationHandler(locations, logger),
		Report:     NewReportHandler(reports, sessions, accounts, tracks, logger),
		Health:     NewHealthHandler(tracks, accounts, logger),
		Medication: NewMedicationHandler(tracks, accounts, logger),
	})

	return &testServer{router: router, backend: backend, store: s}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
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
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) signIn(t *testing.T) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/auth/code", api.RequestCodeRequest{Identifier: "ana@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/verify", api.VerifyRequest{Identifier: "ana@example.com", Code: account.DevCode})
	require.Equal(t, http.StatusOK, w.Code)
	var verify api.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verify))
	require.Equal(t, api.VerifyProfileRequired, verify.Status)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/register", api.RegisterRequest{
		Identifier: "ana@example.com",
		Name:       "Ana",
		Age:        "34",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (ts *testServer) startSession(t *testing.T, mode model.Mode) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{Mode: mode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data += strings.TrimPrefix(line, "data:")
		case line == "" && cur.name != "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	if cur.name != "" {
		events = append(events, cur)
	}
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.name
	}
	return names
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), Version)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeUnauthorized, decodeError(t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/verify", api.VerifyRequest{Identifier: "nobody@example.com", Code: account.DevCode})
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.signIn(t)

	w = ts.do(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user model.UserProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, account.DefaultGender, user.Gender)

	w = ts.do(t, http.MethodPut, "/api/v1/profile/language", api.LanguageRequest{Language: "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyKnownUserSignsIn(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)
	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil).Code)

	ts.do(t, http.MethodPost, "/api/v1/auth/code", api.RequestCodeRequest{Identifier: "ana@example.com"})
	w := ts.do(t, http.MethodPost, "/api/v1/auth/verify", api.VerifyRequest{Identifier: "ana@example.com", Code: account.DevCode})

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.VerifySignedIn, resp.Status)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Ana", resp.User.Name)
}

func TestListLanguages(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/languages", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.LanguagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Languages)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.signIn(t)

	w = ts.do(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{Mode: "ASTROLOGY"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	first := ts.startSession(t, model.ModeSymptom)
	second := ts.startSession(t, model.ModeSkin)
	assert.NotEqual(t, first, second)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.SessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 2)
	for _, s := range list.Sessions {
		assert.Equal(t, 1, s.MessageCount, "new sessions hold only the greeting")
	}

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/"+first+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, first, conv.SessionID)
	assert.Equal(t, model.ModeSymptom, conv.Mode)
	assert.NotEmpty(t, conv.ModeTitle)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleModel, conv.Messages[0].Role)

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/missing/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/sessions/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/conversation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv = api.ConversationResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Empty(t, conv.SessionID)
	assert.Empty(t, conv.Messages)
}

func TestSubmitTurnStreamsEvents(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)
	ts.startSession(t, model.ModeSymptom)

	w := ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "I have a cough"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseEvents(t, w.Body.String())
	names := eventNames(events)
	require.NotEmpty(t, names)
	assert.Equal(t, eventUser, names[0])
	assert.Contains(t, names, eventPending)
	assert.Equal(t, eventResolved, names[len(names)-1])
	assert.NotContains(t, names, eventFailed)

	var resolved model.Message
	require.NoError(t, json.Unmarshal([]byte(events[len(events)-1].data), &resolved))
	require.NotNil(t, resolved.Result)
	assert.Equal(t, "Rest and drink fluids.", resolved.Result.Advice)
	assert.Equal(t, model.UrgencyLow, resolved.Result.Urgency)

	w = ts.do(t, http.MethodGet, "/api/v1/conversation", nil)
	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "I have a cough", conv.Messages[1].Text)
	assert.False(t, conv.Messages[2].IsPending())
	assert.False(t, conv.InFlight)
}

func TestSubmitTurnRejectionsAreJSON(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "hello"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, api.CodeConflict, decodeError(t, w).Code)

	ts.startSession(t, model.ModeSymptom)

	w = ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: strings.Repeat("a", turn.MaxInputRunes+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, ts.backend.Requests())
}

func TestSubmitTurnFailureIsStreamed(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)
	ts.startSession(t, model.ModeSymptom)
	ts.backend.StreamErr = gateway.ErrUnavailable

	w := ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "I have a cough"})

	require.Equal(t, http.StatusOK, w.Code)
	names := eventNames(parseEvents(t, w.Body.String()))
	assert.Equal(t, eventUser, names[0])
	assert.Equal(t, eventFailed, names[len(names)-1])
	assert.NotContains(t, names, eventResolved)

	w = ts.do(t, http.MethodGet, "/api/v1/conversation", nil)
	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 2, "the user's message stays, the placeholder goes")
	assert.Equal(t, model.RoleUser, conv.Messages[1].Role)
}

func TestSubmitVoice(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)
	ts.startSession(t, model.ModeSymptom)
	ts.backend.Transcript = "my head hurts"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns/voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	names := eventNames(parseEvents(t, w.Body.String()))
	assert.Equal(t, eventLoading, names[0])
	assert.Contains(t, names, eventUser)
	assert.Equal(t, eventResolved, names[len(names)-1])

	w = ts.do(t, http.MethodGet, "/api/v1/conversation", nil)
	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "my head hurts", conv.Messages[1].Text)
	assert.True(t, conv.Messages[1].VoiceOrigin)
}

func TestSubmitVoiceMissingFile(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/turns/voice", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)
}

func TestFindCareStartsConversation(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/care", api.CareRequest{
		Location: &model.Location{Latitude: 47.49, Longitude: 19.04},
	})

	require.Equal(t, http.StatusOK, w.Code)
	names := eventNames(parseEvents(t, w.Body.String()))
	assert.Equal(t, eventResolved, names[len(names)-1])

	reqs := ts.backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, turn.CareQuery, reqs[0].Text)
	require.NotNil(t, reqs[0].Location)
	assert.InDelta(t, 47.49, reqs[0].Location.Latitude, 1e-9)
}

func TestFindCareNeedsLocation(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/care", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, api.CodeUnavailable, decodeError(t, w).Code)
	assert.Empty(t, ts.backend.Requests())

	w = ts.do(t, http.MethodPut, "/api/v1/location", model.Location{Latitude: 47.5, Longitude: 19.0})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/care", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reqs := ts.backend.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Location)
	assert.InDelta(t, 47.5, reqs[0].Location.Latitude, 1e-9)
}

func TestSynthesizeSpeech(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/speech", api.SpeechRequest{Text: "hello"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	ts.backend.Audio = []byte("ID3")
	w = ts.do(t, http.MethodPost, "/api/v1/speech", api.SpeechRequest{Text: "hello"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3", w.Body.String())
}

func TestLocationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/v1/location", model.Location{Latitude: 120, Longitude: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/v1/location", model.Location{Latitude: 47.5, Longitude: 19.0})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.LocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 47.5, resp.Location.Latitude, 1e-9)
}

func TestReportEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/report", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "no active conversation")

	ts.startSession(t, model.ModeSymptom)
	w = ts.do(t, http.MethodPost, "/api/v1/report", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "greeting alone is too short")

	ts.do(t, http.MethodPost, "/api/v1/turns", api.TurnRequest{Text: "I have a cough"})

	w = ts.do(t, http.MethodPost, "/api/v1/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep api.ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "Mild cough for two days.", rep.Summary)
	assert.True(t, bytes.HasPrefix(rep.PDF, []byte("%PDF")))
	require.NotEmpty(t, rep.BlobName)

	w = ts.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.ReportsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Contains(t, list.Reports, rep.BlobName)

	w = ts.do(t, http.MethodGet, "/api/v1/reports/download?name="+rep.BlobName, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, rep.PDF, w.Body.Bytes())

	w = ts.do(t, http.MethodGet, "/api/v1/reports/download?name=reports/someone-else/x.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/share", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), report.ShareTitle)
	assert.Contains(t, w.Body.String(), "Patient: I have a cough")
}

func TestSymptomEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/symptoms", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.signIn(t)

	w = ts.do(t, http.MethodPost, "/api/v1/symptoms", tracker.SymptomInput{Symptom: "Headache", Severity: 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/symptoms", tracker.SymptomInput{Symptom: "Headache", Severity: 6})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var entry model.SymptomLogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, tracker.DefaultFrequency, entry.Frequency)

	ts.do(t, http.MethodPost, "/api/v1/symptoms", tracker.SymptomInput{Symptom: "Nausea", Severity: 2})

	w = ts.do(t, http.MethodGet, "/api/v1/symptoms?symptom=Headache&range=30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.SymptomLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 1)
	assert.ElementsMatch(t, []string{"Headache", "Nausea"}, resp.Symptoms)
	require.NotNil(t, resp.Stats)

	w = ts.do(t, http.MethodGet, "/api/v1/symptoms/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = ts.do(t, http.MethodDelete, "/api/v1/symptoms/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/symptoms/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReminderEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)

	w := ts.do(t, http.MethodPost, "/api/v1/reminders", tracker.ReminderInput{MedicationName: "Ibuprofen", TotalQuantity: 30, DosagePerDay: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/reminders", tracker.ReminderInput{MedicationName: "Ibuprofen", TotalQuantity: 30, DosagePerDay: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reminder model.MedicationReminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reminder))

	w = ts.do(t, http.MethodGet, "/api/v1/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.RemindersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, 10, resp.Reminders[0].DaysRemaining)

	w = ts.do(t, http.MethodDelete, "/api/v1/reminders/"+reminder.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAccountDataEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t)
	ts.startSession(t, model.ModeMedicine)
	ts.do(t, http.MethodPost, "/api/v1/symptoms", tracker.SymptomInput{Symptom: "Rash", Severity: 3})

	w := ts.do(t, http.MethodGet, "/api/v1/account/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Rash")

	w = ts.do(t, http.MethodGet, "/api/v1/account/audit?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var audits api.AuditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &audits))
	assert.NotEmpty(t, audits.Entries)

	w = ts.do(t, http.MethodDelete, "/api/v1/account/data", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
