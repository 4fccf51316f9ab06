// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses.
const (
	ProjectPlanning   = "Planning"
	ProjectInProgress = "In Progress"
	ProjectOnHold     = "On Hold"
	ProjectCompleted  = "Completed"
	ProjectCancelled  = "Cancelled"
)

// Project member roles.
const (
	ProjectManager     = "manager"
	ProjectContributor = "contributor"
	ProjectViewer      = "viewer"
)

// ProjectMember is a user attached to a project.
type ProjectMember struct {
	User primitive.ObjectID `bson:"user" json:"user"`
	Role string             `bson:"role" json:"role"`
}

// Project groups tasks inside a workspace.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Status      string               `bson:"status" json:"status"`
	Workspace   primitive.ObjectID   `bson:"workspace" json:"workspace"`
	StartDate   *time.Time           `bson:"start_date,omitempty" json:"start_date,omitempty"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Progress    int                  `bson:"progress" json:"progress"`
	Tasks       []primitive.ObjectID `bson:"tasks" json:"tasks"`
	Members     []ProjectMember      `bson:"members" json:"members"`
	Tags        []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	IsArchived  bool                 `bson:"is_archived" json:"is_archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// ProjectWithTasks is a project with its tasks loaded.
type ProjectWithTasks struct {
	Project
	TaskDocs []Task `json:"task_docs"`
}
