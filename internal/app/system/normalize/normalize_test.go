package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John Doe", "John Doe"},
		{"  John Doe  ", "John Doe"},
		{"John    Doe", "John Doe"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoleAndColor(t *testing.T) {
	if got := Role("  Admin "); got != "admin" {
		t.Errorf("Role = %q, want admin", got)
	}
	if got := Color(" #ff5733 "); got != "#FF5733" {
		t.Errorf("Color = %q, want #FF5733", got)
	}
}

func TestObjectID(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"  507f1f77bcf86cd799439011 ", true},
		{"", false},
		{"null", false},
		{"undefined", false},
		{"not-an-id", false},
		{"507f1f77bcf86cd79943901", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, ok := ObjectID(tt.input)
			if ok != tt.ok {
				t.Fatalf("ObjectID(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && id.IsZero() {
				t.Errorf("ObjectID(%q) returned zero id", tt.input)
			}
		})
	}
}
