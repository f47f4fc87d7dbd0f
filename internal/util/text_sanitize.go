package util

import "strings"

// SanitizeText strips bytes that Postgres text columns reject: NUL and
// the other control characters PDF extractors leak into their output.
// Tab, newline and carriage return survive; the result is trimmed.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
