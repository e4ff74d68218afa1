package conversation

import "strings"

const (
	UntitledChat   = "Untitled chat"
	suggestedRunes = 40
	maxTitleRunes  = 80
)

var defaultTitles = map[string]bool{
	"":              true,
	"new chat":      true,
	"untitled chat": true,
	"chat":          true,
}

// IsDefaultTitle reports whether a chat still carries a placeholder title
func IsDefaultTitle(title string) bool {
	return defaultTitles[strings.ToLower(strings.TrimSpace(title))]
}

// SuggestTitle derives a title from the first message of a chat
func SuggestTitle(message string) string {
	return NormalizeTitle(truncate(strings.Join(strings.Fields(message), " "), suggestedRunes))
}

func NormalizeTitle(title string) string {
	title = truncate(strings.TrimSpace(title), maxTitleRunes)
	title = strings.TrimSpace(title)
	if title == "" {
		return UntitledChat
	}
	return title
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
