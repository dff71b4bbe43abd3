package email

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer escapes raw HTML in its input (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts a markdown body to HTML for the HTML part of a message.
// PRE: md is user-safe markdown
// POST: Returns HTML with any embedded raw HTML escaped
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// markdownSpecial lists the ASCII punctuation that can start or end markdown
// syntax. CommonMark accepts a backslash escape before any of them.
const markdownSpecial = "\\`*_{}[]()<>#+-.!|~&"

// EscapeMarkdown backslash-escapes text so it renders literally when
// interpolated into a markdown body.
// POST: RenderMarkdown of the result shows text unchanged
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 && strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
