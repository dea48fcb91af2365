// Package content converts rich campaign bodies into renderings suitable
// for individual channels. The email channel delivers the rich content
// unmodified; chat delivery goes through ToPlainText.
package content

import (
	"regexp"
	"strings"
)

var (
	lineBreakRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraCloseRe = regexp.MustCompile(`(?i)</p\s*>`)
	markupTagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// ToPlainText rewrites a rich HTML body into plain text for chat delivery.
// Line breaks become newlines, paragraph closes become blank lines, and any
// remaining markup tags are stripped. Malformed markup degrades gracefully:
// text that does not parse as a tag is left as literal text. The result is
// trimmed of leading and trailing whitespace.
func ToPlainText(rich string) string {
	text := lineBreakRe.ReplaceAllString(rich, "\n")
	text = paraCloseRe.ReplaceAllString(text, "\n\n")
	text = markupTagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
