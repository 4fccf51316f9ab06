package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/flowbase/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if got := htmlsanitize.Sanitize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	if got := htmlsanitize.Sanitize("Ship the release"); got != "Ship the release" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("expected safe HTML preserved, got %q", got)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	input := `<a href="javascript:alert('xss')">Click</a>`
	if got := htmlsanitize.Sanitize(input); strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", got)
	}
}

func TestSanitize_AllowsTableSpans(t *testing.T) {
	got := htmlsanitize.Sanitize(`<table><tr><td colspan="2">Cell</td></tr></table>`)
	if !strings.Contains(got, `colspan="2"`) {
		t.Errorf("expected colspan preserved, got %q", got)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Marketing", "Marketing"},
		{"<b>Marketing</b>", "Marketing"},
		{"  Q3 <script>x()</script>plan ", "Q3 plan"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
