package sanitize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Fallback is returned by Advisory when the model output is empty or too short to show.
const Fallback = "<p><em>AI provided an incomplete response. Please analyze the city again.</em></p>"

const minLength = 10

// Advisory strips markdown code fences that models sometimes wrap around HTML
// and trims the result. Output shorter than 10 characters is replaced by Fallback.
func Advisory(raw string) string {
	text := strings.ReplaceAll(raw, "```html", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minLength {
		return Fallback
	}
	return text
}

// PlainText returns the visible text of an HTML fragment with runs of
// whitespace collapsed to single spaces.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF on a well-formed fragment; anything else still yields what was read.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
