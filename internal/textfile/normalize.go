package textfile

import (
	"strings"
	"unicode"
)

// Normalize makes text typeable: CRLF becomes LF, untypeable control runes are
// dropped, trailing spaces are cut from each line and blank edges are trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(keepTypeable, text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func keepTypeable(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case r == '\uFEFF' || unicode.IsControl(r):
		return -1
	default:
		return r
	}
}
