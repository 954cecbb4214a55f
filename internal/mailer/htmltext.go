package mailer

import (
	"html"
	"strings"
	"unicode"
)

// plainTextLimit bounds the derived plain-text fallback.
const plainTextLimit = 500

// HTMLToPlainText strips markup from an HTML body, unescapes entities and
// collapses runs of whitespace into single spaces.
func HTMLToPlainText(htmlBody string) string {
	var b strings.Builder
	inTag := false
	for _, r := range htmlBody {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	text := html.UnescapeString(b.String())

	var out strings.Builder
	lastSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace && out.Len() > 0 {
				out.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		out.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(out.String())
}

// PlainTextPreview derives the transport's plain-text fallback: stripped
// markup truncated to 500 characters plus an ellipsis.
func PlainTextPreview(htmlBody string) string {
	text := HTMLToPlainText(htmlBody)
	runes := []rune(text)
	if len(runes) <= plainTextLimit {
		return text
	}
	return string(runes[:plainTextLimit]) + "…"
}
