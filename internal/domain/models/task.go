// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses.
const (
	TaskToDo       = "To Do"
	TaskInProgress = "In Progress"
	TaskDone       = "Done"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Subtask is a checklist item embedded in a task.
type Subtask struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Completed bool               `bson:"completed" json:"completed"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Attachment is a file reference on a task.
type Attachment struct {
	FileName   string             `bson:"file_name" json:"file_name"`
	FileURL    string             `bson:"file_url" json:"file_url"`
	FileType   string             `bson:"file_type,omitempty" json:"file_type,omitempty"`
	FileSize   int64              `bson:"file_size,omitempty" json:"file_size,omitempty"`
	UploadedBy primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Project     primitive.ObjectID   `bson:"project" json:"project"`
	Status      string               `bson:"status" json:"status"`
	Priority    string               `bson:"priority" json:"priority"`
	Assignees   []primitive.ObjectID `bson:"assignees" json:"assignees"`
	Watchers    []primitive.ObjectID `bson:"watchers" json:"watchers"`
	Subtasks    []Subtask            `bson:"subtasks" json:"subtasks"`
	Attachments []Attachment         `bson:"attachments,omitempty" json:"attachments,omitempty"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	CompletedAt *time.Time           `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	IsArchived  bool                 `bson:"is_archived" json:"is_archived"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidTaskStatus reports whether s is a known task status.
func IsValidTaskStatus(s string) bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// IsValidPriority reports whether p is a known task priority.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IsWatchedBy reports whether userID watches t.
func (t Task) IsWatchedBy(userID primitive.ObjectID) bool {
	for _, w := range t.Watchers {
		if w == userID {
			return true
		}
	}
	return false
}

// Comment is a note left on a task.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Task      primitive.ObjectID `bson:"task" json:"task"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
