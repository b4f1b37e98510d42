package command

import (
	"strings"
	"unicode"
)

// Tokenize splits text on runs of whitespace, discarding empty tokens.
//
// Postcondition: Returns nil for blank input.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// argumentText returns the text following the first token, with leading
// whitespace removed.
func argumentText(text string) string {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimLeftFunc(text[i:], unicode.IsSpace)
}

// SplitN splits text into at most n whitespace-delimited pieces. The last
// piece keeps the remainder of the text, including interior whitespace, so a
// final free-text parameter receives everything the actor typed.
//
// Postcondition: No piece is empty; returns nil when n <= 0 or text is blank.
func SplitN(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	var out []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		if len(out) == n-1 {
			out = append(out, rest)
			break
		}
		i := strings.IndexFunc(rest, unicode.IsSpace)
		if i < 0 {
			out = append(out, rest)
			break
		}
		out = append(out, rest[:i])
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
	}
	return out
}
