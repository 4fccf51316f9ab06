// internal/domain/models/verification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verification purposes.
const (
	PurposeEmailVerification = "email-verification"
	PurposeResetPassword     = "reset-password"
)

// Verification holds the outstanding signed token for an email verification
// or password reset. One record per (user, purpose).
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Purpose   string             `bson:"purpose"`
	Token     string             `bson:"token"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Expired reports whether v is past its expiry at now.
func (v Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
