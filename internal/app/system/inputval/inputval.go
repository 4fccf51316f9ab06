// Package inputval validates request payloads.
//
// Structs declare rules with `validate` tags and a human `label` tag:
//
//	type createInput struct {
//	    Name  string `json:"name" validate:"required,min=1,max=80" label:"Workspace name"`
//	    Color string `json:"color" validate:"omitempty,hexcolor6" label:"Color"`
//	}
//
// Validate returns a Result whose messages can be shown to the caller.
package inputval

import (
	"net/mail"
	"strings"
)

// IsValidEmail reports whether s is a bare address (no display name) with
// well-formed local and domain parts. Single-label domains are allowed.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if !dotsOK(local) || !dotsOK(domain) {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		for _, r := range label {
			if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return false
			}
		}
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func dotsOK(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".") && !strings.Contains(s, "..")
}
