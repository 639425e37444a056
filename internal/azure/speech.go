package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mediguide/assistant/internal/retry"
	"go.uber.org/zap"
)

// Voice pairs a recognition locale with the neural voice used for playback
type Voice struct {
	Locale string
	Name   string
}

// voices maps supported language codes to Azure locales and voices
var voices = map[string]Voice{
	"en": {Locale: "en-US", Name: "en-US-JennyNeural"},
	"hi": {Locale: "hi-IN", Name: "hi-IN-SwaraNeural"},
	"bn": {Locale: "bn-IN", Name: "bn-IN-TanishaaNeural"},
	"ta": {Locale: "ta-IN", Name: "ta-IN-PallaviNeural"},
	"te": {Locale: "te-IN", Name: "te-IN-ShrutiNeural"},
	"gu": {Locale: "gu-IN", Name: "gu-IN-DhwaniNeural"},
	"es": {Locale: "es-ES", Name: "es-ES-ElviraNeural"},
	"fr": {Locale: "fr-FR", Name: "fr-FR-DeniseNeural"},
	"de": {Locale: "de-DE", Name: "de-DE-KatjaNeural"},
	"zh": {Locale: "zh-CN", Name: "zh-CN-XiaoxiaoNeural"},
}

// VoiceFor returns the voice for a language code, defaulting to English
func VoiceFor(languageCode string) Voice {
	if v, ok := voices[languageCode]; ok {
		return v
	}
	return voices["en"]
}

// SpeechServiceClient wraps Azure Speech Service REST API for speech-to-text and text-to-speech
type SpeechServiceClient struct {
	subscriptionKey string
	region          string
	endpoint        string
	ttsEndpoint     string
	httpClient      *http.Client
	retry           retry.Policy
	logger          *zap.Logger
}

// NewSpeechServiceClient creates a new Azure Speech Service client
func NewSpeechServiceClient(subscriptionKey, region string, logger *zap.Logger) (*SpeechServiceClient, error) {
	if subscriptionKey == "" || region == "" {
		return nil, fmt.Errorf("subscriptionKey and region are required")
	}

	return &SpeechServiceClient{
		subscriptionKey: subscriptionKey,
		region:          region,
		endpoint:        fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		ttsEndpoint:     fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry:  retry.Default(),
		logger: logger,
	}, nil
}

// Transcribe converts recorded audio to text in the given language. An
// utterance with no recognizable speech yields an empty transcript.
func (c *SpeechServiceClient) Transcribe(ctx context.Context, audio []byte, mimeType, languageCode string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio is empty")
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	voice := VoiceFor(languageCode)

	c.logger.Info("starting speech-to-text transcription",
		zap.String("locale", voice.Locale),
		zap.Int("audio_size_bytes", len(audio)),
	)

	url := fmt.Sprintf("%s/speech/recognition/conversation/cognitiveservices/v1?language=%s", c.endpoint, voice.Locale)
	startTime := time.Now()

	var body []byte
	err := c.retry.Do(ctx, c.logger, "speech_to_text", func(ctx context.Context) error {
		var err error
		body, err = c.post(ctx, url, bytes.NewReader(audio), map[string]string{
			"Content-Type": mimeType,
			"Accept":       "application/json",
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("speech-to-text request failed: %w", err)
	}

	var result struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("speech-to-text transcription completed",
		zap.String("status", result.RecognitionStatus),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	switch result.RecognitionStatus {
	case "Success":
		return result.DisplayText, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return "", nil
	default:
		return "", fmt.Errorf("recognition failed with status: %s", result.RecognitionStatus)
	}
}

// SynthesizeSpeech renders text as MP3 audio in the voice for the given
// language. Empty text produces no audio.
func (c *SpeechServiceClient) SynthesizeSpeech(ctx context.Context, text, languageCode string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	voice := VoiceFor(languageCode)

	c.logger.Info("starting text-to-speech synthesis",
		zap.String("voice", voice.Name),
		zap.Int("text_length", len(text)),
	)

	ssml, err := buildSSML(voice, text)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	var audio []byte
	err = c.retry.Do(ctx, c.logger, "text_to_speech", func(ctx context.Context) error {
		var err error
		audio, err = c.post(ctx, c.ttsEndpoint+"/cognitiveservices/v1", bytes.NewReader(ssml), map[string]string{
			"Content-Type":             "application/ssml+xml",
			"X-Microsoft-OutputFormat": "audio-24khz-48kbitrate-mono-mp3",
			"User-Agent":               "MediGuide",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("text-to-speech request failed: %w", err)
	}

	c.logger.Info("text-to-speech synthesis completed",
		zap.Int("audio_size_bytes", len(audio)),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	return audio, nil
}

func (c *SpeechServiceClient) post(ctx context.Context, url string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("speech service request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(data)),
		)
		return nil, &retry.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

type ssmlVoice struct {
	Lang string `xml:"xml:lang,attr"`
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

type ssmlSpeak struct {
	XMLName xml.Name  `xml:"speak"`
	Version string    `xml:"version,attr"`
	Lang    string    `xml:"xml:lang,attr"`
	Voice   ssmlVoice `xml:"voice"`
}

// buildSSML escapes the text so markup in model output cannot break the document
func buildSSML(voice Voice, text string) ([]byte, error) {
	doc := ssmlSpeak{
		Version: "1.0",
		Lang:    voice.Locale,
		Voice:   ssmlVoice{Lang: voice.Locale, Name: voice.Name, Text: text},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSML: %w", err)
	}
	return out, nil
}
