package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/mediguide/assistant/pkg/model"
)

type errorScenario struct {
	method     string
	path       string
	body       string
	signedIn   bool
	withMode   bool
	wantStatus int
	wantCode   string
}

var errorScenarios = map[string]errorScenario{
	"malformed_json_turn": {
		method: http.MethodPost, path: "/api/v1/turns", body: `{"text": }`,
		signedIn: true, withMode: true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"malformed_json_symptom": {
		method: http.MethodPost, path: "/api/v1/symptoms", body: `{"symptom": "x", "severity": }`,
		signedIn:   true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"json_array_reminder": {
		method: http.MethodPost, path: "/api/v1/reminders", body: `[1,2,3`,
		signedIn:   true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"unknown_mode": {
		method: http.MethodPost, path: "/api/v1/sessions", body: `{"mode":"TAROT"}`,
		signedIn:   true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"blank_identifier": {
		method: http.MethodPost, path: "/api/v1/auth/code", body: `{"identifier":"  "}`,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"signed_out_profile": {
		method: http.MethodGet, path: "/api/v1/profile",
		wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthorized,
	},
	"signed_out_symptoms": {
		method: http.MethodGet, path: "/api/v1/symptoms",
		wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthorized,
	},
	"turn_without_mode": {
		method: http.MethodPost, path: "/api/v1/turns", body: `{"text":"hello"}`,
		signedIn:   true,
		wantStatus: http.StatusConflict, wantCode: api.CodeConflict,
	},
	"missing_reminder": {
		method: http.MethodDelete, path: "/api/v1/reminders/nope",
		signedIn:   true,
		wantStatus: http.StatusNotFound, wantCode: api.CodeNotFound,
	},
	"report_without_conversation": {
		method: http.MethodPost, path: "/api/v1/report",
		signedIn:   true,
		wantStatus: http.StatusConflict, wantCode: api.CodeConflict,
	},
	"download_without_name": {
		method: http.MethodGet, path: "/api/v1/reports/download",
		signedIn:   true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
	"bad_audit_limit": {
		method: http.MethodGet, path: "/api/v1/account/audit?limit=-1",
		signedIn:   true,
		wantStatus: http.StatusBadRequest, wantCode: api.CodeValidation,
	},
}

func scenarioNames() []interface{} {
	names := make([]interface{}, 0, len(errorScenarios))
	for name := range errorScenarios {
		names = append(names, name)
	}
	return names
}

// Every failing request answers with a {code, message} body and a status
// matching its code.
func TestProperty_ErrorResponseStructure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("error responses carry code and message", prop.ForAll(
		func(name string) bool {
			sc := errorScenarios[name]
			ts := newTestServer(t)
			if sc.signedIn {
				ts.signIn(t)
			}
			if sc.withMode {
				ts.startSession(t, model.ModeSymptom)
			}

			req := httptest.NewRequest(sc.method, sc.path, bytes.NewBufferString(sc.body))
			if sc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			if w.Code != sc.wantStatus {
				t.Logf("Scenario %s: expected status %d, got %d", name, sc.wantStatus, w.Code)
				return false
			}

			var resp api.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Logf("Scenario %s: failed to parse error response: %v, body: %s", name, err, w.Body.String())
				return false
			}
			if resp.Code != sc.wantCode {
				t.Logf("Scenario %s: expected code %q, got %q", name, sc.wantCode, resp.Code)
				return false
			}
			if resp.Message == "" {
				t.Logf("Scenario %s: error response missing message", name)
				return false
			}
			return true
		},
		gen.OneConstOf(scenarioNames()...),
	))

	properties.TestingRun(t)
}

// Rejected turns never reach the reply backend.
func TestProperty_RejectedTurnsSkipBackend(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("blank or oversized text is rejected before the backend", prop.ForAll(
		func(spaces int, oversized bool) bool {
			ts := newTestServer(t)
			ts.signIn(t)
			ts.startSession(t, model.ModeSymptom)

			text := string(bytes.Repeat([]byte{' '}, spaces))
			if oversized {
				text = string(bytes.Repeat([]byte{'a'}, turn.MaxInputRunes+1+spaces))
			}
			body, _ := json.Marshal(api.TurnRequest{Text: text})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			return w.Code == http.StatusBadRequest && len(ts.backend.Requests()) == 0
		},
		gen.IntRange(0, 20),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
