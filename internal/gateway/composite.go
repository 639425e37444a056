package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// Backends selects the implementation behind each gateway operation. Only
// Replier is required.
type Backends struct {
	Replier     Replier
	Summarizer  Summarizer
	Transcriber Transcriber
	Synthesizer Synthesizer
}

// Gateway routes each operation to its configured backend
type Gateway struct {
	backends Backends
	logger   *zap.Logger
}

var _ Service = (*Gateway)(nil)

// New creates a gateway over the given backends
func New(backends Backends, logger *zap.Logger) (*Gateway, error) {
	if backends.Replier == nil {
		return nil, fmt.Errorf("a reply backend is required")
	}
	return &Gateway{backends: backends, logger: logger}, nil
}

// StreamReply validates the request and starts the reply stream
func (g *Gateway) StreamReply(ctx context.Context, req ReplyRequest) (<-chan Event, error) {
	if err := validate(req); err != nil {
		g.logger.Warn("rejected reply request", zap.Error(err))
		return nil, err
	}
	req.Language = locale.Lookup(req.Language).Code
	return g.backends.Replier.StreamReply(ctx, req)
}

// Transcribe converts recorded audio to text
func (g *Gateway) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	if g.backends.Transcriber == nil {
		return "", fmt.Errorf("transcription: %w", ErrUnavailable)
	}
	startTime := time.Now()
	text, err := g.backends.Transcriber.Transcribe(ctx, audio, mimeType, locale.Lookup(language).Code)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	g.logger.Info("audio transcribed",
		zap.Int("audio_size_bytes", len(audio)),
		zap.Int("transcript_length", len(text)),
		zap.Duration("processing_time", time.Since(startTime)),
	)
	return text, nil
}

// SynthesizeSpeech renders text as audio. Without a speech backend it
// returns no audio rather than an error.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, text, language string) ([]byte, error) {
	if g.backends.Synthesizer == nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return g.backends.Synthesizer.SynthesizeSpeech(ctx, text, locale.Lookup(language).Code)
}

// Summarize produces a clinical summary of the conversation
func (g *Gateway) Summarize(ctx context.Context, messages []model.Message) (string, error) {
	if g.backends.Summarizer == nil {
		return "", fmt.Errorf("summary: %w", ErrUnavailable)
	}
	return g.backends.Summarizer.Summarize(ctx, messages)
}
