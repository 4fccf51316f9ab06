// Package htmlsanitize strips unsafe markup from user-authored text.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = newUGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize keeps formatting markup in descriptions and comments and drops
// scripts, event handlers and javascript: links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText removes all markup. Used for names and titles.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
