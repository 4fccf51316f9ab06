// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. Workspace roles live on the membership entry, not here.
const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// User is an account that can own and join workspaces.
//
// PasswordHash is never serialised to JSON.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName        string             `bson:"full_name" json:"full_name"`
	FullNameCI      string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email           string             `bson:"email" json:"email"`
	PasswordHash    string             `bson:"password_hash" json:"-"`
	ProfilePicture  string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	IsEmailVerified bool               `bson:"is_email_verified" json:"is_email_verified"`
	LastLogin       *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	Role            string             `bson:"role" json:"role"` // admin | user

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the public face of a user embedded in other responses.
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	FullName       string             `bson:"full_name" json:"full_name"`
	Email          string             `bson:"email" json:"email"`
	ProfilePicture string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
}

// Summary returns the public fields of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, ProfilePicture: u.ProfilePicture}
}
