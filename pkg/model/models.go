package model

import "time"

// Mode selects the triage instructions used for a conversation
type Mode string

const (
	ModeSymptom      Mode = "SYMPTOM"
	ModeSkin         Mode = "SKIN"
	ModeMedicine     Mode = "MEDICINE"
	ModeMentalHealth Mode = "MENTAL_HEALTH"
)

// Modes lists every mode in display order
var Modes = []Mode{ModeSymptom, ModeSkin, ModeMedicine, ModeMentalHealth}

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case ModeSymptom, ModeSkin, ModeMedicine, ModeMentalHealth:
		return true
	}
	return false
}

// Urgency is the triage level attached to a model reply
type Urgency string

const (
	UrgencyLow     Urgency = "LOW"
	UrgencyMedium  Urgency = "MEDIUM"
	UrgencyHigh    Urgency = "HIGH"
	UrgencyUnknown Urgency = "UNKNOWN"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// MessageState tracks the lifecycle of a model reply
type MessageState string

const (
	MessagePending  MessageState = "pending"
	MessageResolved MessageState = "resolved"
)

// UserProfile represents a registered user of the client
type UserProfile struct {
	ID             string `json:"id"`
	Identifier     string `json:"emailOrPhone"`
	Name           string `json:"name"`
	Age            string `json:"age"`
	Gender         string `json:"gender"`
	MedicalHistory string `json:"medicalHistory"`
	Language       string `json:"language"`
	Verified       bool   `json:"isVerified"`
}

// StructuredResult is the parsed form of a model reply
type StructuredResult struct {
	Advice            string   `json:"advice"`
	Urgency           Urgency  `json:"urgency"`
	Reasoning         string   `json:"reasoning"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// WebSource is a web page cited by a grounded reply
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// PlaceSource is a map place cited by a grounded reply
type PlaceSource struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	PlaceID string `json:"placeId,omitempty"`
}

// Citation holds exactly one of Web or Place
type Citation struct {
	Web   *WebSource   `json:"web,omitempty"`
	Place *PlaceSource `json:"maps,omitempty"`
}

// Message represents a single entry in a conversation
type Message struct {
	ID          string            `json:"id"`
	Role        Role              `json:"role"`
	Text        string            `json:"text,omitempty"`
	Image       string            `json:"image,omitempty"` // data URL
	Result      *StructuredResult `json:"structuredResponse,omitempty"`
	Citations   []Citation        `json:"groundingChunks,omitempty"`
	Timestamp   int64             `json:"timestamp"` // unix millis
	State       MessageState      `json:"state,omitempty"`
	VoiceOrigin bool              `json:"voiceOrigin,omitempty"`
}

// IsPending reports whether m is an in-flight model placeholder
func (m Message) IsPending() bool {
	return m.Role == RoleModel && m.State == MessagePending
}

// Content returns the text a reader would see for the message
func (m Message) Content() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Result != nil {
		return m.Result.Advice
	}
	return ""
}

// ChatSession represents one persisted conversation thread
type ChatSession struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Mode             Mode      `json:"mode"`
	Title            string    `json:"title"`
	PlaceholderTitle bool      `json:"placeholderTitle,omitempty"`
	Preview          string    `json:"preview"`
	Timestamp        int64     `json:"timestamp"` // last activity, unix millis
	Messages         []Message `json:"messages"`
}

// SymptomLogEntry is one self-reported symptom observation
type SymptomLogEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Symptom   string `json:"symptom"`
	Severity  int    `json:"severity"` // 1-10
	Duration  string `json:"duration,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// MedicationReminder tracks when a medication pack runs out
type MedicationReminder struct {
	ID             string `json:"id"`
	MedicationName string `json:"medicationName"`
	TotalQuantity  int    `json:"totalQuantity"`
	DosagePerDay   int    `json:"dosagePerDay"`
	StartDate      int64  `json:"startDate"`
	RefillDate     int64  `json:"refillDate"`
	Notes          string `json:"notes,omitempty"`
}

// Location is a device position in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Millis converts t to the unix-millisecond form used in persisted records
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
