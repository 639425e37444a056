// Package api holds the HTTP request and response bodies of the assistant API
// and the OpenAPI document they are validated against.
package api

import (
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/pkg/model"
)

// Error codes
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// RequestCodeRequest starts a login
type RequestCodeRequest struct {
	Identifier string `json:"identifier"`
}

// VerifyRequest submits the one-time code
type VerifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

// VerifyStatus tells the client what to do after verification
type VerifyStatus string

const (
	VerifySignedIn        VerifyStatus = "signed_in"
	VerifyProfileRequired VerifyStatus = "profile_required"
)

// VerifyResponse carries the user when the identifier is known
type VerifyResponse struct {
	Status VerifyStatus       `json:"status"`
	User   *model.UserProfile `json:"user,omitempty"`
}

// RegisterRequest completes sign-up for a verified identifier
type RegisterRequest struct {
	Identifier     string `json:"identifier"`
	Name           string `json:"name"`
	Age            string `json:"age"`
	Gender         string `json:"gender,omitempty"`
	MedicalHistory string `json:"medicalHistory,omitempty"`
	Language       string `json:"language,omitempty"`
}

// ProfileRequest replaces the editable profile fields
type ProfileRequest struct {
	Name           string `json:"name"`
	Age            string `json:"age"`
	Gender         string `json:"gender,omitempty"`
	MedicalHistory string `json:"medicalHistory,omitempty"`
	Language       string `json:"language,omitempty"`
}

// LanguageRequest changes the reply language
type LanguageRequest struct {
	Language string `json:"language"`
}

// CreateSessionRequest opens a conversation in a mode
type CreateSessionRequest struct {
	Mode model.Mode `json:"mode"`
}

// SessionResponse identifies a session
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// SessionsResponse lists the sessions index, most recent first
type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// SessionSummary is a session without its messages
type SessionSummary struct {
	ID           string     `json:"id"`
	Mode         model.Mode `json:"mode"`
	Title        string     `json:"title"`
	Preview      string     `json:"preview"`
	Timestamp    int64      `json:"timestamp"`
	MessageCount int        `json:"messageCount"`
}

// ConversationResponse is the active conversation
type ConversationResponse struct {
	SessionID string          `json:"sessionId,omitempty"`
	Mode      model.Mode      `json:"mode,omitempty"`
	ModeTitle string          `json:"modeTitle,omitempty"`
	Tips      []string        `json:"tips,omitempty"`
	Messages  []model.Message `json:"messages"`
	InFlight  bool            `json:"inFlight"`
}

// TurnRequest submits one user turn
type TurnRequest struct {
	Text     string          `json:"text,omitempty"`
	Image    string          `json:"image,omitempty"` // data URL
	Focus    bool            `json:"focus,omitempty"`
	Location *model.Location `json:"location,omitempty"`
}

// CareRequest asks for nearby care
type CareRequest struct {
	Location *model.Location `json:"location,omitempty"`
}

// SpeechRequest asks for synthesized audio of a reply
type SpeechRequest struct {
	Text string `json:"text"`
}

// LocationResponse is the device location in use
type LocationResponse struct {
	Location model.Location `json:"location"`
}

// ReportResponse is a generated consultation report
type ReportResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	BlobName string `json:"blobName,omitempty"`
	PDF      []byte `json:"pdf"` // base64 in JSON
}

// ReportsResponse lists archived reports
type ReportsResponse struct {
	Reports []string `json:"reports"`
}

// SymptomLogResponse is the filtered symptom log with its statistics
type SymptomLogResponse struct {
	Logs     []model.SymptomLogEntry  `json:"logs"`
	Stats    *tracker.Stats           `json:"stats"`
	Symptoms []string                 `json:"symptoms"`
	Overview []tracker.SymptomSummary `json:"overview"`
}

// RemindersResponse lists reminders with their countdowns
type RemindersResponse struct {
	Reminders []tracker.ReminderStatus `json:"reminders"`
}

// AuditResponse lists recent audit entries, newest first
type AuditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

// LanguagesResponse lists the supported languages
type LanguagesResponse struct {
	Languages []LanguageOption `json:"languages"`
}

// LanguageOption is one entry of the language picker
type LanguageOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
