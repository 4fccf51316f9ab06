// Package normalize cleans user-supplied strings before they are stored
// or compared.
package normalize

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role trims and lowercases a workspace role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Color trims a hex color and uppercases its digits.
func Color(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ObjectID parses an id taken from a path or body. Blank values and the
// literal strings "null" and "undefined" are rejected.
func ObjectID(s string) (primitive.ObjectID, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "null", "undefined":
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
