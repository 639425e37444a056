package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediguide/assistant/internal/retry"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend
type GeminiConfig struct {
	APIKey       string
	BaseURL      string // optional endpoint override
	Models       ModelPolicy
	UtilityModel string
	SpeechModel  string
	Voice        string
	Temperature  float32
}

// Speech defaults for read-aloud
const (
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"
)

// GeminiClient streams grounded replies from Gemini and serves the one-shot
// transcription, summary and speech calls
type GeminiClient struct {
	client       *genai.Client
	models       ModelPolicy
	utilityModel string
	speechModel  string
	voice        string
	temperature  float32
	retry        retry.Policy
	logger       *zap.Logger
}

// NewGeminiClient creates a Gemini backend
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	models := cfg.Models
	if models == nil {
		models = DefaultModelPolicy("", "")
	}
	utility := cfg.UtilityModel
	if utility == "" {
		utility = DefaultUtilityModel
	}
	speechModel := cfg.SpeechModel
	if speechModel == "" {
		speechModel = DefaultSpeechModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.5
	}

	policy := retry.Default()
	policy.Retryable = isGeminiRetryable

	return &GeminiClient{
		client:       client,
		models:       models,
		utilityModel: utility,
		speechModel:  speechModel,
		voice:        voice,
		temperature:  temperature,
		retry:        policy,
		logger:       logger,
	}, nil
}

// StreamReply streams a reply with web search grounding, adding maps
// grounding around the request location when one is attached
func (c *GeminiClient) StreamReply(ctx context.Context, req ReplyRequest) (<-chan Event, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	instruction, err := SystemInstruction(req)
	if err != nil {
		return nil, err
	}

	modelName := c.models(req)
	contents := []*genai.Content{genai.NewContentFromParts(c.parts(req), genai.RoleUser)}
	config := c.replyConfig(instruction, req.Location)

	c.logger.Info("starting Gemini reply stream",
		zap.String("model", modelName),
		zap.String("mode", string(req.Mode)),
		zap.Int("history_length", len(req.History)),
		zap.Bool("has_image", req.Image != nil),
		zap.Bool("has_location", req.Location != nil),
		zap.Bool("focus", req.Focus),
	)

	return runStream(ctx, c.retry, c.logger, "gemini_stream_reply", func(ctx context.Context, e *emitter) error {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, modelName, contents, config) {
			if err != nil {
				return err
			}
			if !e.text(resp.Text()) {
				return ctx.Err()
			}
			if !e.cite(citationsFrom(resp)) {
				return ctx.Err()
			}
		}
		return ctx.Err()
	}), nil
}

func (c *GeminiClient) parts(req ReplyRequest) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(Prompt(req))}
	if req.Image != nil {
		mimeType := req.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, mimeType))
	}
	return parts
}

func (c *GeminiClient) replyConfig(instruction string, loc *model.Location) *genai.GenerateContentConfig {
	tool := &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		Tools:             []*genai.Tool{tool},
	}
	if loc != nil {
		tool.GoogleMaps = &genai.GoogleMaps{}
		config.ToolConfig = &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{
					Latitude:  genai.Ptr(loc.Latitude),
					Longitude: genai.Ptr(loc.Longitude),
				},
			},
		}
	}
	return config
}

// citationsFrom collects web and maps grounding chunks from a stream chunk
func citationsFrom(resp *genai.GenerateContentResponse) []model.Citation {
	if resp == nil {
		return nil
	}
	var out []model.Citation
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			switch {
			case chunk == nil:
			case chunk.Web != nil:
				out = append(out, model.Citation{Web: &model.WebSource{
					URI:   chunk.Web.URI,
					Title: chunk.Web.Title,
				}})
			case chunk.Maps != nil:
				out = append(out, model.Citation{Place: &model.PlaceSource{
					URI:     chunk.Maps.URI,
					Title:   chunk.Maps.Title,
					PlaceID: chunk.Maps.PlaceID,
				}})
			}
		}
	}
	return out
}

// Transcribe asks the utility model for a verbatim transcript
func (c *GeminiClient) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio is empty")
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(audio, mimeType),
		genai.NewPartFromText(transcribePrompt),
	}
	text, err := c.generate(ctx, "gemini_transcribe", parts)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Summarize asks the utility model for a clinical report of the conversation
func (c *GeminiClient) Summarize(ctx context.Context, messages []model.Message) (string, error) {
	text, err := c.generate(ctx, "gemini_summarize", []*genai.Part{genai.NewPartFromText(SummaryPrompt(messages))})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return SummaryFallback, nil
	}
	return text, nil
}

// SynthesizeSpeech reads text aloud with the speech model. PCM output is
// returned as WAV; a response without audio yields nil audio.
func (c *GeminiClient) SynthesizeSpeech(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty")
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
			},
		},
	}
	startTime := time.Now()

	var blob *genai.Blob
	err := c.retry.Do(ctx, c.logger, "gemini_synthesize_speech", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.speechModel, contents, config)
		if err != nil {
			return err
		}
		blob = inlineAudio(resp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if blob == nil || len(blob.Data) == 0 {
		c.logger.Warn("Gemini returned no audio",
			zap.String("model", c.speechModel),
			zap.String("language", language),
		)
		return nil, nil
	}

	audio := blob.Data
	if isPCM(blob.MIMEType) {
		audio = wavFromPCM(blob.Data, pcmRate(blob.MIMEType))
	}

	c.logger.Info("Gemini speech synthesized",
		zap.String("model", c.speechModel),
		zap.String("voice", c.voice),
		zap.String("language", language),
		zap.Int("text_length", len(text)),
		zap.Int("audio_size_bytes", len(audio)),
		zap.Duration("processing_time", time.Since(startTime)),
	)
	return audio, nil
}

// inlineAudio returns the first inline audio part of a response
func inlineAudio(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func (c *GeminiClient) generate(ctx context.Context, op string, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	startTime := time.Now()

	var text string
	err := c.retry.Do(ctx, c.logger, op, func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.utilityModel, contents, nil)
		if err != nil {
			return err
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Gemini request completed",
		zap.String("operation", op),
		zap.String("model", c.utilityModel),
		zap.Int("response_length", len(text)),
		zap.Duration("processing_time", time.Since(startTime)),
	)
	return text, nil
}

// isGeminiRetryable retries service-unavailable and rate-limit responses
// plus network failures; model and authorization errors are final
func isGeminiRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.TransientStatus(apiErr.Code)
	}
	return retry.IsTransient(err)
}
