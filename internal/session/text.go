package session

// Display limits in runes
const (
	PreviewLimit = 60
	TitleLimit   = 30
)

const ellipsis = "..."

// Truncate shortens s to limit runes, marking the cut with an ellipsis
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
