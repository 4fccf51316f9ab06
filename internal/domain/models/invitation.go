// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteWindow is how long a workspace invitation stays live.
const InviteWindow = 7 * 24 * time.Hour

// Invitation is a pending offer for an existing user to join a workspace.
// It is deleted when accepted or when superseded after expiring.
type Invitation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Token       string             `bson:"token" json:"-"`
	Role        string             `bson:"role" json:"role"`
	InvitedBy   primitive.ObjectID `bson:"invited_by" json:"invited_by"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Expired reports whether the invitation is past its expiry at now.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
