package spirit

import "strings"

const ellipsis = "..."

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Truncate trims text and limits it to maxWords words. A truncated text keeps
// the first maxWords words joined by single spaces, drops one trailing
// , ; or : and ends with an ellipsis; its reported word count is maxWords.
func Truncate(text string, maxWords int) (string, int) {
	text = strings.TrimSpace(text)
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, len(words)
	}

	truncated := strings.Join(words[:maxWords], " ")
	if n := len(truncated); n > 0 && strings.ContainsRune(",;:", rune(truncated[n-1])) {
		truncated = truncated[:n-1]
	}
	return truncated + ellipsis, maxWords
}
