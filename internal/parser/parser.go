package parser

import (
	"encoding/json"
	"strings"

	"github.com/mediguide/assistant/pkg/model"
)

// Separator divides the advice text from the trailing metadata block
const Separator = "---METADATA---"

// DefaultReasoning is used when the metadata carries no reasoning
const DefaultReasoning = "Analysis complete"

// Parse splits a complete reply into advice and metadata.
// It never fails: malformed or missing metadata yields defaults.
func Parse(raw string) model.StructuredResult {
	advice, meta := split(raw)

	fields := decodeMetadata(stripFences(meta))

	result := model.StructuredResult{
		Advice:            advice,
		Urgency:           model.UrgencyUnknown,
		Reasoning:         DefaultReasoning,
		FollowUpQuestions: []string{},
	}

	if u, ok := fields["urgency"].(string); ok {
		result.Urgency = normalizeUrgency(u)
	}

	if r, ok := fields["reasoning"].(string); ok && r != "" {
		result.Reasoning = r
	}

	if qs, ok := fields["followUpQuestions"].([]any); ok {
		for _, q := range qs {
			if s, ok := q.(string); ok {
				result.FollowUpQuestions = append(result.FollowUpQuestions, s)
			}
		}
	}

	return result
}

// VisibleAdvice returns the part of a partially streamed reply that may be
// shown to the user. Metadata after the separator is hidden, and so is any
// trailing text that could still turn out to be the start of the separator.
func VisibleAdvice(partial string) string {
	if i := strings.Index(partial, Separator); i >= 0 {
		return partial[:i]
	}
	for n := len(Separator) - 1; n > 0; n-- {
		if strings.HasSuffix(partial, Separator[:n]) {
			return partial[:len(partial)-n]
		}
	}
	return partial
}

func split(raw string) (string, string) {
	i := strings.Index(raw, Separator)
	if i < 0 {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+len(Separator):])
}

// stripFences removes markdown code fences the model sometimes wraps JSON in
func stripFences(s string) string {
	if len(s) >= 7 && strings.EqualFold(s[:7], "```json") {
		s = strings.TrimLeft(s[7:], " \t\r\n")
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s[3:], " \t\r\n")
	}
	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, "```") {
		s = trimmed[:len(trimmed)-3]
	}
	return strings.TrimSpace(s)
}

func decodeMetadata(s string) map[string]any {
	fields := map[string]any{}
	if s == "" {
		return fields
	}
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return map[string]any{}
	}
	return fields
}

func normalizeUrgency(u string) model.Urgency {
	switch model.Urgency(strings.ToUpper(strings.TrimSpace(u))) {
	case model.UrgencyLow:
		return model.UrgencyLow
	case model.UrgencyMedium:
		return model.UrgencyMedium
	case model.UrgencyHigh:
		return model.UrgencyHigh
	}
	return model.UrgencyUnknown
}
