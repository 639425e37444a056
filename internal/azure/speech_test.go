package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediguide/assistant/internal/retry"
	"go.uber.org/zap"
)

func TestNewSpeechServiceClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		subscriptionKey string
		region          string
		wantErr         bool
	}{
		{
			name:            "valid configuration",
			subscriptionKey: "test-key",
			region:          "centralindia",
			wantErr:         false,
		},
		{
			name:            "missing subscription key",
			subscriptionKey: "",
			region:          "centralindia",
			wantErr:         true,
		},
		{
			name:            "missing region",
			subscriptionKey: "test-key",
			region:          "",
			wantErr:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewSpeechServiceClient(tt.subscriptionKey, tt.region, logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSpeechServiceClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if client.endpoint != "https://centralindia.stt.speech.microsoft.com" {
				t.Errorf("endpoint = %v", client.endpoint)
			}
			if client.ttsEndpoint != "https://centralindia.tts.speech.microsoft.com" {
				t.Errorf("ttsEndpoint = %v", client.ttsEndpoint)
			}
			if client.httpClient.Timeout != 60*time.Second {
				t.Errorf("timeout = %v, want 60s", client.httpClient.Timeout)
			}
		})
	}
}

// newTestSpeechClient targets a mock server with instant backoff
func newTestSpeechClient(serverURL string) *SpeechServiceClient {
	policy := retry.Default()
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	return &SpeechServiceClient{
		subscriptionKey: "test-key",
		region:          "centralindia",
		endpoint:        serverURL,
		ttsEndpoint:     serverURL,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		retry:           policy,
		logger:          zap.NewNop(),
	}
}

func TestVoiceFor(t *testing.T) {
	tests := []struct {
		code   string
		locale string
		voice  string
	}{
		{"en", "en-US", "en-US-JennyNeural"},
		{"hi", "hi-IN", "hi-IN-SwaraNeural"},
		{"zh", "zh-CN", "zh-CN-XiaoxiaoNeural"},
		{"xx", "en-US", "en-US-JennyNeural"},
		{"", "en-US", "en-US-JennyNeural"},
	}

	for _, tt := range tests {
		v := VoiceFor(tt.code)
		if v.Locale != tt.locale || v.Name != tt.voice {
			t.Errorf("VoiceFor(%q) = %+v, want %s/%s", tt.code, v, tt.locale, tt.voice)
		}
	}
}

func TestSpeechServiceClient_Transcribe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			t.Error("Missing or incorrect subscription key header")
		}
		if r.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.URL.Query().Get("language") != "hi-IN" {
			t.Errorf("language = %q, want hi-IN", r.URL.Query().Get("language"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"RecognitionStatus": "Success",
			"DisplayText":       "मुझे सिरदर्द है",
		})
	}))
	defer server.Close()

	client := newTestSpeechClient(server.URL)
	result, err := client.Transcribe(context.Background(), []byte("RIFF audio"), "audio/wav", "hi")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result != "मुझे सिरदर्द है" {
		t.Errorf("Transcribe() = %v", result)
	}
}

func TestSpeechServiceClient_Transcribe_NoSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"RecognitionStatus": "NoMatch"})
	}))
	defer server.Close()

	result, err := newTestSpeechClient(server.URL).Transcribe(context.Background(), []byte("silence"), "", "en")
	if err != nil {
		t.Errorf("Transcribe() error = %v", err)
	}
	if result != "" {
		t.Errorf("Transcribe() = %q, want empty", result)
	}
}

func TestSpeechServiceClient_Transcribe_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte("Invalid subscription key"))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("invalid json"))
			},
		},
		{
			name: "recognition error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"RecognitionStatus": "Error"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestSpeechClient(server.URL).Transcribe(context.Background(), []byte("audio"), "audio/wav", "en")
			if err == nil {
				t.Error("Transcribe() should return an error")
			}
		})
	}

	if _, err := newTestSpeechClient("http://unused").Transcribe(context.Background(), nil, "audio/wav", "en"); err == nil {
		t.Error("Transcribe() should reject empty audio")
	}
}

func TestSpeechServiceClient_Transcribe_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"RecognitionStatus": "Success", "DisplayText": "hello"})
	}))
	defer server.Close()

	result, err := newTestSpeechClient(server.URL).Transcribe(context.Background(), []byte("audio"), "audio/wav", "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result != "hello" || calls.Load() != 2 {
		t.Errorf("Transcribe() = %q after %d calls", result, calls.Load())
	}
}

func TestSpeechServiceClient_Synthesize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cognitiveservices/v1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/ssml+xml" {
			t.Error("Missing or incorrect content type header")
		}

		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte("es-ES-ElviraNeural")) {
			t.Error("SSML should contain the Spanish voice name")
		}
		if !bytes.Contains(body, []byte("Descanse &amp; beba agua")) {
			t.Errorf("SSML should contain the escaped text, got %s", body)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mock audio mp3 data"))
	}))
	defer server.Close()

	audio, err := newTestSpeechClient(server.URL).SynthesizeSpeech(context.Background(), "Descanse & beba agua", "es")
	if err != nil {
		t.Fatalf("SynthesizeSpeech() error = %v", err)
	}
	if string(audio) != "mock audio mp3 data" {
		t.Errorf("SynthesizeSpeech() = %v", string(audio))
	}
}

func TestSpeechServiceClient_Synthesize_EmptyText(t *testing.T) {
	audio, err := newTestSpeechClient("http://unused").SynthesizeSpeech(context.Background(), "", "en")
	if err != nil || audio != nil {
		t.Errorf("SynthesizeSpeech(\"\") = %v, %v; want nil, nil", audio, err)
	}
}

func TestSpeechServiceClient_Synthesize_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid SSML"))
	}))
	defer server.Close()

	if _, err := newTestSpeechClient(server.URL).SynthesizeSpeech(context.Background(), "Test", "en"); err == nil {
		t.Error("SynthesizeSpeech() should return error for HTTP error")
	}
}

func TestSpeechServiceClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := newTestSpeechClient(server.URL).Transcribe(ctx, []byte("audio"), "audio/wav", "en"); err == nil {
		t.Error("Transcribe() should return error for cancelled context")
	}
}
