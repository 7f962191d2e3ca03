package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips any markup from user input and returns trimmed plain text.
// bluemonday escapes what it keeps, so entities are decoded back; the result
// is stored as text and escaped again by whoever renders it.
func PlainText(s string) string {
	stripped := strictPolicy.Sanitize(strings.TrimSpace(s))
	return strings.TrimSpace(html.UnescapeString(stripped))
}
