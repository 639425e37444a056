package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mediguide/assistant/internal/retry"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const apiVersion = "2024-08-01-preview"

// OpenAIClient wraps the Azure OpenAI chat API with retry logic and logging
type OpenAIClient struct {
	client      *openai.Client
	deployment  string
	temperature float64
	retry       retry.Policy
	logger      *zap.Logger
}

// NewOpenAIClient creates a new Azure OpenAI client using the openai-go SDK with Azure extensions
func NewOpenAIClient(endpoint, apiKey, deployment string, logger *zap.Logger) (*OpenAIClient, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("endpoint, apiKey, and deployment are required")
	}

	// SDK-level retries are disabled; the policy below owns them
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	policy := retry.Default()
	policy.Retryable = isRetryable

	return &OpenAIClient{
		client:      &client,
		deployment:  deployment,
		temperature: 0.5,
		retry:       policy,
		logger:      logger,
	}, nil
}

// Deployment returns the configured model deployment name
func (c *OpenAIClient) Deployment() string {
	return c.deployment
}

// Complete sends a chat completion request and returns the full reply
func (c *OpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}

	var content string
	err := c.retry.Do(ctx, c.logger, "azure_openai_complete", func(ctx context.Context) error {
		var err error
		content, err = c.complete(ctx, messages)
		return err
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// complete performs a single chat completion request
func (c *OpenAIClient) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	requestStart := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Azure OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	c.logger.Info("Azure OpenAI token usage",
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("request_time", time.Since(requestStart)),
	)

	return content, nil
}

// StreamChat streams a chat completion, calling onDelta with each text
// fragment in arrival order, and returns the accumulated reply. A failed
// attempt is retried only while nothing has been delivered to onDelta.
func (c *OpenAIClient) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onDelta func(string)) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}

	startTime := time.Now()
	var full []byte
	delivered := false

	for n := 0; ; n++ {
		if n > 0 {
			c.logger.Info("retrying Azure OpenAI stream",
				zap.Int("attempt", n+1),
				zap.Duration("delay", c.retry.Delay(n)),
			)
			if err := c.retry.Wait(ctx, n); err != nil {
				return "", err
			}
		}

		err := c.stream(ctx, messages, func(delta string) {
			delivered = true
			full = append(full, delta...)
			onDelta(delta)
		})
		if err == nil {
			c.logger.Info("Azure OpenAI stream completed",
				zap.Int("attempts", n+1),
				zap.Int("reply_length", len(full)),
				zap.Duration("processing_time", time.Since(startTime)),
			)
			return string(full), nil
		}

		if delivered || !c.retry.ShouldRetry(ctx, err, n) {
			c.logger.Error("Azure OpenAI stream failed",
				zap.Error(err),
				zap.Int("attempts", n+1),
				zap.Bool("partial_delivered", delivered),
			)
			return string(full), err
		}

		c.logger.Warn("Azure OpenAI stream failed before first token, will retry",
			zap.Error(err),
			zap.Int("attempt", n+1),
		)
	}
}

func (c *OpenAIClient) stream(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onDelta func(string)) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("chat completion stream failed: %w", err)
	}
	return nil
}

func (c *OpenAIClient) params(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.deployment),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	}
}

// isRetryable retries rate limits, server errors and network failures but
// never authentication or invalid-request errors
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.TransientStatus(apiErr.StatusCode)
	}
	return retry.IsTransient(err)
}
