// internal/domain/models/workspace.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace roles, highest first.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// DefaultWorkspaceColor is used when a workspace is created without one.
const DefaultWorkspaceColor = "#FF5733"

var (
	// ErrNotOwner is returned when an owner-only change is attempted by someone else.
	ErrNotOwner = errors.New("only the workspace owner can do this")
	// ErrAlreadyMember is returned when adding a user who already has an entry.
	ErrAlreadyMember = errors.New("user is already a member of this workspace")
	// ErrSelfTransfer is returned when the owner transfers the workspace to themselves.
	ErrSelfTransfer = errors.New("workspace is already owned by this user")
)

// Member is one entry of a workspace's membership list.
type Member struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     string             `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// Workspace is a named container of projects shared by its members.
//
// Owner always equals the user of the single member entry whose role is
// RoleOwner. Revision increases on every membership rewrite and guards
// ReplaceMembership against lost updates.
type Workspace struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	NameCI      string               `bson:"name_ci" json:"-"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Color       string               `bson:"color" json:"color"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Members     []Member             `bson:"members" json:"members"`
	Projects    []primitive.ObjectID `bson:"projects" json:"projects"`
	Revision    int64                `bson:"revision" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewWorkspace builds a workspace owned by creator, who is its only member.
func NewWorkspace(name, description, color string, creator primitive.ObjectID, now time.Time) Workspace {
	if color == "" {
		color = DefaultWorkspaceColor
	}
	return Workspace{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: description,
		Color:       color,
		Owner:       creator,
		Members:     []Member{{User: creator, Role: RoleOwner, JoinedAt: now}},
		Projects:    []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsMember reports whether userID has a membership entry.
func (w Workspace) IsMember(userID primitive.ObjectID) bool {
	return w.memberIndex(userID) >= 0
}

// RoleOf returns the role of userID, or "" if they are not a member.
func (w Workspace) RoleOf(userID primitive.ObjectID) string {
	if i := w.memberIndex(userID); i >= 0 {
		return w.Members[i].Role
	}
	return ""
}

// HasRole reports whether userID is a member with one of roles.
func (w Workspace) HasRole(userID primitive.ObjectID, roles ...string) bool {
	r := w.RoleOf(userID)
	if r == "" {
		return false
	}
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// OwnerCount returns the number of entries holding RoleOwner.
func (w Workspace) OwnerCount() int {
	n := 0
	for _, m := range w.Members {
		if m.Role == RoleOwner {
			n++
		}
	}
	return n
}

// OwnershipConsistent reports whether exactly one entry is the owner and it
// matches the Owner field.
func (w Workspace) OwnershipConsistent() bool {
	return w.OwnerCount() == 1 && w.RoleOf(w.Owner) == RoleOwner
}

// AddMember appends userID with role. It fails if userID already has an entry.
func (w *Workspace) AddMember(userID primitive.ObjectID, role string, now time.Time) error {
	if w.IsMember(userID) {
		return ErrAlreadyMember
	}
	w.Members = append(w.Members, Member{User: userID, Role: role, JoinedAt: now})
	return nil
}

// TransferOwnership hands the workspace from actor to newOwner.
//
// newOwner joins as a member first if needed, the actor is demoted to admin,
// and newOwner is promoted. The receiver is only changed when the whole
// transfer succeeds.
func (w *Workspace) TransferOwnership(actor, newOwner primitive.ObjectID, now time.Time) error {
	if w.RoleOf(actor) != RoleOwner {
		return ErrNotOwner
	}
	if actor == newOwner {
		return ErrSelfTransfer
	}

	members := make([]Member, len(w.Members))
	copy(members, w.Members)
	next := Workspace{Members: members}

	if !next.IsMember(newOwner) {
		next.Members = append(next.Members, Member{User: newOwner, Role: RoleMember, JoinedAt: now})
	}
	next.Members[next.memberIndex(actor)].Role = RoleAdmin
	next.Members[next.memberIndex(newOwner)].Role = RoleOwner

	w.Members = next.Members
	w.Owner = newOwner
	w.UpdatedAt = now
	return nil
}

// MemberIDs returns the user ids of all members in list order.
func (w Workspace) MemberIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(w.Members))
	for _, m := range w.Members {
		ids = append(ids, m.User)
	}
	return ids
}

func (w Workspace) memberIndex(userID primitive.ObjectID) int {
	for i, m := range w.Members {
		if m.User == userID {
			return i
		}
	}
	return -1
}

// IsValidWorkspaceRole reports whether r is one of the four workspace roles.
func IsValidWorkspaceRole(r string) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// IsInvitableRole reports whether r can be granted through an invitation.
func IsInvitableRole(r string) bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// MemberView is a membership entry with the user expanded.
type MemberView struct {
	User     UserSummary `json:"user"`
	Role     string      `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}
