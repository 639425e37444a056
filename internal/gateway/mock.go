package gateway

import (
	"context"
	"sync"

	"github.com/mediguide/assistant/internal/retry"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// MockService is a scripted in-memory Service for tests and offline runs
type MockService struct {
	mu sync.Mutex

	// Chunks are streamed in order as text increments
	Chunks    []string
	Citations []model.Citation
	// StreamErr ends the stream with an error after Chunks
	StreamErr error
	// StartErr is returned synchronously from StreamReply
	StartErr error
	// Release, when non-nil, holds the terminal event until it is closed
	Release chan struct{}

	Transcript    string
	TranscribeErr error
	Audio         []byte
	Summary       string
	SummaryErr    error

	requests []ReplyRequest
}

var _ Service = (*MockService)(nil)

// NewMockService creates a mock that streams the given chunks
func NewMockService(chunks ...string) *MockService {
	return &MockService{Chunks: chunks}
}

// StreamReply records the request and replays the scripted stream
func (m *MockService) StreamReply(ctx context.Context, req ReplyRequest) (<-chan Event, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	chunks := append([]string(nil), m.Chunks...)
	citations := append([]model.Citation(nil), m.Citations...)
	streamErr, startErr, release := m.StreamErr, m.StartErr, m.Release
	m.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}

	return runStream(ctx, retry.Policy{}, zap.NewNop(), "mock_stream_reply", func(ctx context.Context, e *emitter) error {
		for _, chunk := range chunks {
			if !e.text(chunk) {
				return ctx.Err()
			}
		}
		if !e.cite(citations) {
			return ctx.Err()
		}
		if release != nil {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return streamErr
	}), nil
}

// Requests returns the reply requests received so far
func (m *MockService) Requests() []ReplyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReplyRequest(nil), m.requests...)
}

// Transcribe returns the scripted transcript
func (m *MockService) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Transcript, m.TranscribeErr
}

// SynthesizeSpeech returns the scripted audio, which may be nil
func (m *MockService) SynthesizeSpeech(ctx context.Context, text, language string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Audio, nil
}

// Summarize returns the scripted summary
func (m *MockService) Summarize(ctx context.Context, messages []model.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SummaryErr != nil {
		return "", m.SummaryErr
	}
	if m.Summary == "" {
		return SummaryFallback, nil
	}
	return m.Summary, nil
}
