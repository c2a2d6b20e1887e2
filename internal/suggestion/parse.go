package suggestion

import (
	"strings"
	"unicode/utf8"
)

const (
	preamblePrefix = "Based on"
	minPlainLength = 20
)

// ParseSuggestions extracts at most MaxSuggestions lines from generated text.
//
// Each line is trimmed. A line starting with a bullet (•, - or *) is kept with
// the bullet removed. Any other non-empty line is kept when it is longer than
// 20 characters and does not start with "Based on".
func ParseSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if len(out) == MaxSuggestions {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isBullet(line) {
			_, size := utf8.DecodeRuneInString(line)
			out = append(out, strings.TrimSpace(line[size:]))
			continue
		}

		if !strings.HasPrefix(line, preamblePrefix) && utf8.RuneCountInString(line) > minPlainLength {
			out = append(out, line)
		}
	}
	return out
}

func isBullet(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	return r == '•' || r == '-' || r == '*'
}
