// Package gateway is the boundary to the remote generation services: streamed
// replies, transcription, speech synthesis and clinical summaries.
package gateway

import (
	"context"
	"errors"

	"github.com/mediguide/assistant/pkg/model"
)

// ErrUnavailable is returned when no backend is configured for an operation
var ErrUnavailable = errors.New("gateway backend not configured")

// Image is an attachment sent with a turn
type Image struct {
	Data     []byte
	MIMEType string
}

// ReplyRequest carries everything a backend needs to generate one reply
type ReplyRequest struct {
	Mode     model.Mode
	Language string // language code
	Profile  *model.UserProfile
	// History is the conversation up to and including the current user message
	History  []model.Message
	Text     string
	Image    *Image
	Focus    bool
	Location *model.Location
}

// EventKind distinguishes stream events
type EventKind int

const (
	// EventText carries the next text increment in Delta
	EventText EventKind = iota
	// EventCitations carries citations attached to a chunk
	EventCitations
	// EventDone is the successful terminal event
	EventDone
	// EventError is the failed terminal event
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCitations:
		return "citations"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Reply is the final outcome of a successful stream
type Reply struct {
	FullText  string
	Citations []model.Citation
}

// Event is one element of a reply stream. A stream delivers any number of
// text and citation events followed by exactly one Done or Error event, then
// the channel is closed. If the request context ends first, the channel may
// close without a terminal event.
type Event struct {
	Kind      EventKind
	Delta     string
	Citations []model.Citation
	Reply     *Reply
	Err       error
}

// Terminal reports whether e ends the stream
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// Replier streams a reply for one turn. The error return covers request
// validation only; generation failures arrive as an EventError.
type Replier interface {
	StreamReply(ctx context.Context, req ReplyRequest) (<-chan Event, error)
}

// Transcriber converts recorded audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
}

// Synthesizer renders text as audio; nil audio with a nil error means none was produced
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, language string) ([]byte, error)
}

// Summarizer produces a clinical summary of a conversation
type Summarizer interface {
	Summarize(ctx context.Context, messages []model.Message) (string, error)
}

// Service is everything the core needs from the remote services
type Service interface {
	Replier
	Transcriber
	Synthesizer
	Summarizer
}

// ModelPolicy picks the remote model for a reply request
type ModelPolicy func(req ReplyRequest) string

// Default model identifiers
const (
	DefaultReasoningModel = "gemini-3.1-pro-preview"
	DefaultLocationModel  = "gemini-2.5-flash"
	DefaultUtilityModel   = "gemini-3.1-pro-preview"
)

// DefaultModelPolicy uses the maps-capable model when a location is attached
// and the reasoning model otherwise. Empty names take the defaults.
func DefaultModelPolicy(reasoningModel, locationModel string) ModelPolicy {
	if reasoningModel == "" {
		reasoningModel = DefaultReasoningModel
	}
	if locationModel == "" {
		locationModel = DefaultLocationModel
	}
	return func(req ReplyRequest) string {
		if req.Location != nil {
			return locationModel
		}
		return reasoningModel
	}
}
