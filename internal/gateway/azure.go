package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mediguide/assistant/internal/azure"
	"github.com/mediguide/assistant/internal/retry"
	"github.com/mediguide/assistant/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// chatClient is the part of the Azure OpenAI client the adapter uses
type chatClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	StreamChat(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onDelta func(string)) (string, error)
}

var _ chatClient = (*azure.OpenAIClient)(nil)

// AzureOpenAI adapts an Azure OpenAI deployment to the reply and summary
// contracts. It has no search or maps grounding, so replies carry no citations.
type AzureOpenAI struct {
	client chatClient
	logger *zap.Logger
}

// NewAzureOpenAI wraps an Azure OpenAI client
func NewAzureOpenAI(client chatClient, logger *zap.Logger) *AzureOpenAI {
	return &AzureOpenAI{client: client, logger: logger}
}

// StreamReply streams a reply through chat completions. The client retries
// before the first token itself, so the stream driver does not retry again.
func (a *AzureOpenAI) StreamReply(ctx context.Context, req ReplyRequest) (<-chan Event, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	messages, err := chatMessages(req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("starting Azure OpenAI reply stream",
		zap.String("mode", string(req.Mode)),
		zap.Int("history_length", len(req.History)),
		zap.Bool("has_image", req.Image != nil),
	)

	return runStream(ctx, retry.Policy{}, a.logger, "azure_stream_reply", func(ctx context.Context, e *emitter) error {
		gone := false
		_, err := a.client.StreamChat(ctx, messages, func(delta string) {
			if !gone && !e.text(delta) {
				gone = true
			}
		})
		if err != nil {
			return err
		}
		return ctx.Err()
	}), nil
}

// Summarize produces a clinical report of the conversation
func (a *AzureOpenAI) Summarize(ctx context.Context, messages []model.Message) (string, error) {
	text, err := a.client.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(SummaryPrompt(messages)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return SummaryFallback, nil
	}
	return text, nil
}

func chatMessages(req ReplyRequest) ([]openai.ChatCompletionMessageParamUnion, error) {
	instruction, err := SystemInstruction(req)
	if err != nil {
		return nil, err
	}

	prompt := Prompt(req)
	user := openai.UserMessage(prompt)
	if req.Image != nil {
		mimeType := req.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	}

	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(instruction),
		user,
	}, nil
}
