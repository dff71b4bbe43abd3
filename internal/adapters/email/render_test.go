package email

import (
	"context"
	"strings"
	"testing"
)

// TestRenderMarkdown tests markdown conversion and raw HTML escaping.
func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		md      string
		want    string
		notWant string
	}{
		{"bold", "**Amina** was absent", "<strong>Amina</strong>", ""},
		{"hard wrap", "line one\nline two", "<br", ""},
		{"raw html escaped", "<script>alert(1)</script>", "", "<script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderMarkdown(tt.md)
			if err != nil {
				t.Fatalf("RenderMarkdown() error = %v", err)
			}
			if tt.want != "" && !strings.Contains(got, tt.want) {
				t.Errorf("RenderMarkdown() = %q, want to contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("RenderMarkdown() = %q, must not contain %q", got, tt.notWant)
			}
		})
	}
}

// TestNoopSender_SendBatch tests one result per request.
func TestNoopSender_SendBatch(t *testing.T) {
	s := NewNoopSender()
	res, err := s.SendBatch(context.Background(), []SendRequest{
		{To: []string{"a@example.com"}, Subject: "x"},
		{To: []string{"b@example.com"}, Subject: "y"},
	})
	if err != nil {
		t.Fatalf("SendBatch() error = %v", err)
	}
	if len(res) != 2 || res[0].MessageID == res[1].MessageID {
		t.Errorf("SendBatch() = %+v, want 2 distinct results", res)
	}
}

// TestEscapeMarkdown tests that escaped names render as literal text.
func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		notWant string
	}{
		{"emphasis", "*Ann*", "*Ann*", "<em>"},
		{"strong", "__Ann__", "__Ann__", "<strong>"},
		{"link", "[click](http://evil.example)", "[click](http://evil.example)", "<a "},
		{"heading", "# Period 1", "# Period 1", "<h1"},
		{"html", "<b>Ann</b>", "&lt;b&gt;Ann&lt;/b&gt;", "<b>"},
		{"hyphen and apostrophe", "Mary-Jane O'Neil", "Mary-Jane O'Neil", ""},
		{"multi-byte", "Zoë 数学", "Zoë 数学", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderMarkdown(EscapeMarkdown(tt.text))
			if err != nil {
				t.Fatalf("RenderMarkdown() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("RenderMarkdown(EscapeMarkdown(%q)) = %q, want it to contain %q", tt.text, got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("RenderMarkdown(EscapeMarkdown(%q)) = %q, must not contain %q", tt.text, got, tt.notWant)
			}
		})
	}
}
