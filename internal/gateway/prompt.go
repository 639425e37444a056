package gateway

import (
	"fmt"
	"strings"

	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/mode"
	"github.com/mediguide/assistant/pkg/model"
)

const (
	imagePlaceholder = "[Image Uploaded]"
	transcribePrompt = "Transcribe this audio exactly."
	summaryPrompt    = "Generate a clinical report for a doctor based on this conversation:\n\n"
)

// SummaryFallback is returned when the model produces no summary text
const SummaryFallback = "Unable to generate summary."

// ConversationContext serializes prior messages as role-tagged lines.
// Pending placeholders are skipped.
func ConversationContext(history []model.Message) string {
	var b strings.Builder
	b.WriteString("PREVIOUS CONTEXT:\n")
	for _, msg := range history {
		if msg.IsPending() {
			continue
		}
		if msg.Role == model.RoleUser {
			text := msg.Text
			if text == "" {
				text = imagePlaceholder
			}
			fmt.Fprintf(&b, "User: %s\n", text)
			continue
		}
		fmt.Fprintf(&b, "Assistant: %s\n", msg.Content())
	}
	return b.String()
}

// Prompt builds the user-turn prompt: context, current query and the optional
// deep-focus directive
func Prompt(req ReplyRequest) string {
	prompt := ConversationContext(req.History) + "\n\nCURRENT USER QUERY: " + req.Text
	if req.Focus {
		prompt += "\n\n" + mode.FocusDirective
	}
	return prompt
}

// SystemInstruction resolves the request language and builds the mode instruction
func SystemInstruction(req ReplyRequest) (string, error) {
	return mode.SystemInstruction(req.Mode, locale.Lookup(req.Language).Name, req.Profile)
}

// SummaryPrompt builds the clinical summary request for a transcript
func SummaryPrompt(messages []model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.IsPending() {
			continue
		}
		speaker := "AI"
		if msg.Role == model.RoleUser {
			speaker = "Patient"
		}
		lines = append(lines, speaker+": "+msg.Content())
	}
	return summaryPrompt + strings.Join(lines, "\n\n")
}

func validate(req ReplyRequest) error {
	if !req.Mode.Valid() {
		return fmt.Errorf("invalid mode: %q", req.Mode)
	}
	if strings.TrimSpace(req.Text) == "" && req.Image == nil {
		return fmt.Errorf("request has neither text nor image")
	}
	if req.Image != nil && len(req.Image.Data) == 0 {
		return fmt.Errorf("image attachment is empty")
	}
	return nil
}
