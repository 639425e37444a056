package parser

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mediguide/assistant/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected model.StructuredResult
	}{
		{
			name: "separator with metadata",
			raw:  "A\n---METADATA---\n{\"urgency\":\"HIGH\",\"reasoning\":\"chest pain\",\"followUpQuestions\":[\"When did it start?\"]}",
			expected: model.StructuredResult{
				Advice:            "A",
				Urgency:           model.UrgencyHigh,
				Reasoning:         "chest pain",
				FollowUpQuestions: []string{"When did it start?"},
			},
		},
		{
			name: "missing separator",
			raw:  "just advice, no metadata",
			expected: model.StructuredResult{
				Advice:            "just advice, no metadata",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "malformed json",
			raw:  "Advice text---METADATA---not json",
			expected: model.StructuredResult{
				Advice:            "Advice text",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "fenced json",
			raw:  "Rest well.\n---METADATA---\n```json\n{\"urgency\":\"LOW\",\"reasoning\":\"mild\",\"followUpQuestions\":[]}\n```\n",
			expected: model.StructuredResult{
				Advice:            "Rest well.",
				Urgency:           model.UrgencyLow,
				Reasoning:         "mild",
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "bare fence",
			raw:  "Rest well.---METADATA---```{\"urgency\":\"MEDIUM\"}```",
			expected: model.StructuredResult{
				Advice:            "Rest well.",
				Urgency:           model.UrgencyMedium,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "unknown urgency value",
			raw:  "x---METADATA---{\"urgency\":\"CRITICAL\"}",
			expected: model.StructuredResult{
				Advice:            "x",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "non string follow ups dropped",
			raw:  "x---METADATA---{\"followUpQuestions\":[\"ok\", 3, null, \"fine\"]}",
			expected: model.StructuredResult{
				Advice:            "x",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{"ok", "fine"},
			},
		},
		{
			name: "only first separator splits",
			raw:  "a---METADATA---b---METADATA---",
			expected: model.StructuredResult{
				Advice:            "a",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "json null",
			raw:  "a---METADATA---null",
			expected: model.StructuredResult{
				Advice:            "a",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
		{
			name: "empty input",
			raw:  "",
			expected: model.StructuredResult{
				Advice:            "",
				Urgency:           model.UrgencyUnknown,
				Reasoning:         DefaultReasoning,
				FollowUpQuestions: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.raw))
		})
	}
}

func TestVisibleAdvice(t *testing.T) {
	tests := []struct {
		partial  string
		expected string
	}{
		{"Try resting", "Try resting"},
		{"Try resting...--", "Try resting..."},
		{"Try resting...---META", "Try resting..."},
		{"Try resting...---METADATA---{\"urg", "Try resting..."},
		{"- drink water", "- drink water"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, VisibleAdvice(tt.partial), "partial %q", tt.partial)
	}
}

func TestProperty_ParseIsDeterministic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parsing twice yields identical results", prop.ForAll(
		func(advice, meta string) bool {
			raw := advice + Separator + meta
			first := Parse(raw)
			second := Parse(raw)
			return assert.ObjectsAreEqual(first, second)
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("urgency is always a known level", prop.ForAll(
		func(raw string) bool {
			switch Parse(raw).Urgency {
			case model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyUnknown:
				return true
			}
			return false
		},
		gen.AnyString(),
	))

	properties.Property("advice never contains the separator", prop.ForAll(
		func(advice, meta string) bool {
			return !strings.Contains(Parse(advice+Separator+meta).Advice, Separator)
		},
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestProperty_VisibleAdviceIsMonotonic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each longer prefix shows at least as much text", prop.ForAll(
		func(advice, meta string) bool {
			full := advice + "\n" + Separator + "\n" + meta
			prev := ""
			for i := 0; i <= len(full); i++ {
				cur := VisibleAdvice(full[:i])
				if !strings.HasPrefix(cur, prev) {
					return false
				}
				prev = cur
			}
			return strings.TrimSpace(prev) == strings.TrimSpace(advice)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties.TestingRun(t, params)
}
