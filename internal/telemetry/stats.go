package telemetry

import (
	"strings"
	"unicode/utf8"
)

// TextStats holds basic size features of a committed turn's text, attached
// to turn_committed events so transcript growth can be observed offline.
type TextStats struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountText computes byte, rune, word, and line counts for s.
func CountText(s string) TextStats {
	return TextStats{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// countLines returns 0 for the empty string, otherwise 1 plus the number of
// newline runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

// Fields renders the stats as telemetry fields.
func (t TextStats) Fields() map[string]any {
	return map[string]any{
		"bytes": t.Bytes,
		"runes": t.Runes,
		"words": t.Words,
		"lines": t.Lines,
	}
}
