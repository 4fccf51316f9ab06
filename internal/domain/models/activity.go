// internal/domain/models/activity.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity actions.
const (
	ActionTaskCreated      = "task_created"
	ActionTaskUpdated      = "task_updated"
	ActionTaskCompleted    = "task_completed"
	ActionTaskDeleted      = "task_deleted"
	ActionTaskWatched      = "task_watched"
	ActionSubtaskCreated   = "subtask_created"
	ActionSubtaskUpdated   = "subtask_updated"
	ActionProjectCreated   = "project_created"
	ActionProjectUpdated   = "project_updated"
	ActionProjectDeleted   = "project_deleted"
	ActionWorkspaceCreated = "workspace_created"
	ActionWorkspaceUpdated = "workspace_updated"
	ActionJoinedWorkspace  = "joined_workspace"
	ActionMemberAdded      = "member_added"
	ActionMemberRemoved    = "member_removed"
	ActionCommentAdded     = "comment_added"
	ActionFileUploaded     = "file_uploaded"
)

// Resource types an activity can point at.
const (
	ResourceTask      = "Task"
	ResourceProject   = "Project"
	ResourceWorkspace = "Workspace"
	ResourceUser      = "User"
	ResourceComment   = "Comment"
)

// Detail kinds. Each kind has exactly one payload field on ActivityDetails.
const (
	DetailNote      = "note"
	DetailChange    = "change"
	DetailSubtask   = "subtask"
	DetailComment   = "comment"
	DetailMember    = "member"
	DetailArchive   = "archive"
	DetailWatch     = "watch"
	DetailAssignees = "assignees"
)

// ErrBadDetails is returned by Validate when the payload does not match Kind.
var ErrBadDetails = errors.New("activity details do not match their kind")

// NoteDetail is a free-text description of what happened.
type NoteDetail struct {
	Text string `bson:"text" json:"text"`
}

// ChangeDetail records a single field changing value.
type ChangeDetail struct {
	Field string `bson:"field" json:"field"`
	From  string `bson:"from" json:"from"`
	To    string `bson:"to" json:"to"`
}

// SubtaskDetail identifies a subtask that was added or toggled.
type SubtaskDetail struct {
	SubtaskID primitive.ObjectID `bson:"subtask_id" json:"subtask_id"`
	Title     string             `bson:"title" json:"title"`
	Completed bool               `bson:"completed" json:"completed"`
}

// CommentDetail identifies a comment and carries a short excerpt.
type CommentDetail struct {
	CommentID primitive.ObjectID `bson:"comment_id" json:"comment_id"`
	Excerpt   string             `bson:"excerpt" json:"excerpt"`
}

// MemberDetail identifies a workspace member and the role they hold.
type MemberDetail struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role   string             `bson:"role" json:"role"`
	Note   string             `bson:"note,omitempty" json:"note,omitempty"`
}

// ArchiveDetail records an archive toggle.
type ArchiveDetail struct {
	Archived bool `bson:"archived" json:"archived"`
}

// WatchDetail records a watch toggle.
type WatchDetail struct {
	Watching bool `bson:"watching" json:"watching"`
}

// AssigneesDetail records the assignee list before and after a change.
type AssigneesDetail struct {
	Before []primitive.ObjectID `bson:"before" json:"before"`
	After  []primitive.ObjectID `bson:"after" json:"after"`
}

// ActivityDetails is a closed variant over the payload types above.
// Build it with one of the Details* constructors.
type ActivityDetails struct {
	Kind      string           `bson:"kind" json:"kind"`
	Note      *NoteDetail      `bson:"note,omitempty" json:"note,omitempty"`
	Change    *ChangeDetail    `bson:"change,omitempty" json:"change,omitempty"`
	Subtask   *SubtaskDetail   `bson:"subtask,omitempty" json:"subtask,omitempty"`
	Comment   *CommentDetail   `bson:"comment,omitempty" json:"comment,omitempty"`
	Member    *MemberDetail    `bson:"member,omitempty" json:"member,omitempty"`
	Archive   *ArchiveDetail   `bson:"archive,omitempty" json:"archive,omitempty"`
	Watch     *WatchDetail     `bson:"watch,omitempty" json:"watch,omitempty"`
	Assignees *AssigneesDetail `bson:"assignees,omitempty" json:"assignees,omitempty"`
}

func DetailsNote(text string) ActivityDetails {
	return ActivityDetails{Kind: DetailNote, Note: &NoteDetail{Text: text}}
}

func DetailsChange(field, from, to string) ActivityDetails {
	return ActivityDetails{Kind: DetailChange, Change: &ChangeDetail{Field: field, From: from, To: to}}
}

func DetailsSubtask(s Subtask) ActivityDetails {
	return ActivityDetails{Kind: DetailSubtask, Subtask: &SubtaskDetail{SubtaskID: s.ID, Title: s.Title, Completed: s.Completed}}
}

func DetailsComment(c Comment) ActivityDetails {
	excerpt := c.Text
	if r := []rune(excerpt); len(r) > 50 {
		excerpt = string(r[:50]) + "..."
	}
	return ActivityDetails{Kind: DetailComment, Comment: &CommentDetail{CommentID: c.ID, Excerpt: excerpt}}
}

func DetailsMember(userID primitive.ObjectID, role, note string) ActivityDetails {
	return ActivityDetails{Kind: DetailMember, Member: &MemberDetail{UserID: userID, Role: role, Note: note}}
}

func DetailsArchive(archived bool) ActivityDetails {
	return ActivityDetails{Kind: DetailArchive, Archive: &ArchiveDetail{Archived: archived}}
}

func DetailsWatch(watching bool) ActivityDetails {
	return ActivityDetails{Kind: DetailWatch, Watch: &WatchDetail{Watching: watching}}
}

func DetailsAssignees(before, after []primitive.ObjectID) ActivityDetails {
	return ActivityDetails{Kind: DetailAssignees, Assignees: &AssigneesDetail{Before: before, After: after}}
}

// Validate checks that exactly the payload named by Kind is set.
func (d ActivityDetails) Validate() error {
	set := map[string]bool{
		DetailNote:      d.Note != nil,
		DetailChange:    d.Change != nil,
		DetailSubtask:   d.Subtask != nil,
		DetailComment:   d.Comment != nil,
		DetailMember:    d.Member != nil,
		DetailArchive:   d.Archive != nil,
		DetailWatch:     d.Watch != nil,
		DetailAssignees: d.Assignees != nil,
	}
	if _, known := set[d.Kind]; !known {
		return ErrBadDetails
	}
	for kind, present := range set {
		if present != (kind == d.Kind) {
			return ErrBadDetails
		}
	}
	return nil
}

// ActivityLog is one entry in a resource's history.
type ActivityLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User         primitive.ObjectID `bson:"user" json:"user"`
	Action       string             `bson:"action" json:"action"`
	ResourceType string             `bson:"resource_type" json:"resource_type"`
	ResourceID   primitive.ObjectID `bson:"resource_id" json:"resource_id"`
	Details      ActivityDetails    `bson:"details" json:"details"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}
