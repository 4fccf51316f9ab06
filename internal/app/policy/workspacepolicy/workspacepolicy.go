// Package workspacepolicy provides authorization policies for workspaces
// and the projects and tasks inside them.
//
// Authorization rules:
//   - Any member can read workspace content
//   - Owners, admins and members can change projects and tasks; viewers cannot
//   - Owners and admins can invite members and edit workspace details
//   - Only the owner can delete or transfer the workspace
package workspacepolicy

import (
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is something a caller wants to do with a workspace.
type Action int

const (
	View Action = iota
	Edit
	Invite
	UpdateDetails
	Delete
	Transfer
)

var allowed = map[Action][]string{
	View:          {models.RoleOwner, models.RoleAdmin, models.RoleMember, models.RoleViewer},
	Edit:          {models.RoleOwner, models.RoleAdmin, models.RoleMember},
	Invite:        {models.RoleOwner, models.RoleAdmin},
	UpdateDetails: {models.RoleOwner, models.RoleAdmin},
	Delete:        {models.RoleOwner},
	Transfer:      {models.RoleOwner},
}

var denied = map[Action]string{
	View:          "You are not a member of this workspace",
	Edit:          "You do not have permission to modify this workspace",
	Invite:        "You are not authorized to invite members to this workspace",
	UpdateDetails: "You are not authorized to update this workspace",
	Delete:        "Only workspace owners can delete workspaces",
	Transfer:      "Only workspace owners can transfer workspaces",
}

// Can reports whether userID may perform action on ws.
func Can(ws models.Workspace, userID primitive.ObjectID, action Action) bool {
	return ws.HasRole(userID, allowed[action]...)
}

// Check returns a Forbidden error when userID may not perform action.
// A non-member always gets the View message so membership is the first gate.
func Check(ws models.Workspace, userID primitive.ObjectID, action Action) error {
	if !ws.IsMember(userID) {
		return apperr.Forbidden(denied[View])
	}
	if !Can(ws, userID, action) {
		return apperr.Forbidden(denied[action])
	}
	return nil
}
