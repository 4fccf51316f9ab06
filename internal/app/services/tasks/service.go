// Package tasksvc manages tasks, their subtasks, comments and watchers.
//
// Every operation resolves task → project → workspace and checks the
// caller's workspace role. Any member may read; viewers may not change
// anything except their own watch flag.
package tasksvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/policy/workspacepolicy"
	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/htmlsanitize"
	"github.com/dalemusser/flowbase/internal/app/system/normalize"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActivityLimit caps the history returned by Activity.
const ActivityLimit = 100

type Workspaces interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error)
}

type Projects interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	AddTask(ctx context.Context, id, taskID primitive.ObjectID) error
	RemoveTask(ctx context.Context, id, taskID primitive.ObjectID) error
}

type Tasks interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	ListAssignedTo(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error)
	Set(ctx context.Context, id primitive.ObjectID, fields taskstore.TaskFields) (models.Task, error)
	AddSubtask(ctx context.Context, id primitive.ObjectID, st models.Subtask) (models.Task, error)
	SetSubtaskCompleted(ctx context.Context, id, subtaskID primitive.ObjectID, completed bool) (models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Comments interface {
	Create(ctx context.Context, c models.Comment) (models.Comment, error)
	ListByTask(ctx context.Context, taskID primitive.ObjectID) ([]models.Comment, error)
	DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (int64, error)
}

type Activity interface {
	Record(ctx context.Context, entry models.ActivityLog) error
	ByResource(ctx context.Context, resourceID primitive.ObjectID, limit int64) ([]models.ActivityLog, error)
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Workspaces Workspaces
	Projects   Projects
	Tasks      Tasks
	Comments   Comments
	Activity   Activity
	Tx         Transactor
	Log        *zap.Logger
	Now        func() time.Time
}

type Service struct {
	d Deps
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{d: d}
}

// scope is a task with the project and workspace it lives in.
type scope struct {
	task    models.Task
	project models.Project
	ws      models.Workspace
}

// CreateInput holds the fields of a new task.
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	Assignees   []primitive.ObjectID
}

// Create adds a task to the project.
func (s *Service) Create(ctx context.Context, actor, projectID primitive.ObjectID, in CreateInput) (models.Task, error) {
	p, ws, err := s.project(ctx, actor, projectID, workspacepolicy.Edit)
	if err != nil {
		return models.Task{}, err
	}
	title := normalize.Name(in.Title)
	if title == "" {
		return models.Task{}, apperr.BadRequest("Title is required")
	}
	if in.Status != "" && !models.IsValidTaskStatus(in.Status) {
		return models.Task{}, apperr.BadRequest("Invalid task status")
	}
	if in.Priority != "" && !models.IsValidPriority(in.Priority) {
		return models.Task{}, apperr.BadRequest("Invalid task priority")
	}
	assignees, err := checkAssignees(ws, in.Assignees)
	if err != nil {
		return models.Task{}, err
	}

	t, err := s.d.Tasks.Create(ctx, models.Task{
		Title:       title,
		Description: htmlsanitize.Sanitize(in.Description),
		Project:     p.ID,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Assignees:   assignees,
		CreatedBy:   actor,
	})
	if err != nil {
		return models.Task{}, apperr.Internal(fmt.Errorf("create task: %w", err))
	}
	if err := s.d.Projects.AddTask(ctx, p.ID, t.ID); err != nil {
		return models.Task{}, apperr.Internal(fmt.Errorf("link task: %w", err))
	}
	s.record(ctx, actor, models.ActionTaskCreated, t.ID, models.DetailsNote("created task "+t.Title))
	return t, nil
}

// Detail is a task with its project.
type Detail struct {
	Task    models.Task    `json:"task"`
	Project models.Project `json:"project"`
}

// Get returns a task and its project.
func (s *Service) Get(ctx context.Context, actor, id primitive.ObjectID) (Detail, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.View)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Task: sc.task, Project: sc.project}, nil
}

// MyTask is a task assigned to the caller with its project's title.
type MyTask struct {
	models.Task
	ProjectTitle string             `json:"project_title"`
	WorkspaceID  primitive.ObjectID `json:"workspace_id"`
}

// Mine lists active tasks assigned to actor, newest first. Tasks whose
// project no longer exists are left out.
func (s *Service) Mine(ctx context.Context, actor primitive.ObjectID) ([]MyTask, error) {
	tasks, err := s.d.Tasks.ListAssignedTo(ctx, actor)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list assigned tasks: %w", err))
	}
	projects := map[primitive.ObjectID]*models.Project{}
	out := make([]MyTask, 0, len(tasks))
	for _, t := range tasks {
		p, seen := projects[t.Project]
		if !seen {
			got, err := s.d.Projects.GetByID(ctx, t.Project)
			switch {
			case err == nil:
				p = &got
			case !errors.Is(err, projectstore.ErrNotFound):
				return nil, apperr.Internal(fmt.Errorf("load project: %w", err))
			}
			projects[t.Project] = p
		}
		if p == nil {
			continue
		}
		out = append(out, MyTask{Task: t, ProjectTitle: p.Title, WorkspaceID: p.Workspace})
	}
	return out, nil
}

// UpdateTitle renames the task.
func (s *Service) UpdateTitle(ctx context.Context, actor, id primitive.ObjectID, title string) (models.Task, error) {
	title = normalize.Name(title)
	if title == "" {
		return models.Task{}, apperr.BadRequest("Title is required")
	}
	return s.setField(ctx, actor, id, "title", func(t models.Task) string { return t.Title },
		taskstore.TaskFields{Title: &title})
}

// UpdateDescription replaces the task description.
func (s *Service) UpdateDescription(ctx context.Context, actor, id primitive.ObjectID, description string) (models.Task, error) {
	d := htmlsanitize.Sanitize(description)
	return s.setField(ctx, actor, id, "description", func(t models.Task) string { return excerpt(t.Description) },
		taskstore.TaskFields{Description: &d})
}

// UpdateStatus moves the task to status. Moving to Done is recorded as
// a completion.
func (s *Service) UpdateStatus(ctx context.Context, actor, id primitive.ObjectID, status string) (models.Task, error) {
	if !models.IsValidTaskStatus(status) {
		return models.Task{}, apperr.BadRequest("Invalid task status")
	}
	return s.setField(ctx, actor, id, "status", func(t models.Task) string { return t.Status },
		taskstore.TaskFields{Status: &status})
}

// UpdatePriority changes the task priority.
func (s *Service) UpdatePriority(ctx context.Context, actor, id primitive.ObjectID, priority string) (models.Task, error) {
	if !models.IsValidPriority(priority) {
		return models.Task{}, apperr.BadRequest("Invalid task priority")
	}
	return s.setField(ctx, actor, id, "priority", func(t models.Task) string { return t.Priority },
		taskstore.TaskFields{Priority: &priority})
}

func (s *Service) setField(ctx context.Context, actor, id primitive.ObjectID, field string, get func(models.Task) string, f taskstore.TaskFields) (models.Task, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Task{}, err
	}
	t, err := s.d.Tasks.Set(ctx, id, f)
	if err != nil {
		return models.Task{}, taskErr(err, "update task")
	}
	action := models.ActionTaskUpdated
	if field == "status" && t.Status == models.TaskDone && sc.task.Status != models.TaskDone {
		action = models.ActionTaskCompleted
	}
	s.record(ctx, actor, action, t.ID, models.DetailsChange(field, get(sc.task), get(t)))
	return t, nil
}

// UpdateAssignees replaces the assignee list. Every assignee must be a
// workspace member.
func (s *Service) UpdateAssignees(ctx context.Context, actor, id primitive.ObjectID, assignees []primitive.ObjectID) (models.Task, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Task{}, err
	}
	next, err := checkAssignees(sc.ws, assignees)
	if err != nil {
		return models.Task{}, err
	}
	t, err := s.d.Tasks.Set(ctx, id, taskstore.TaskFields{Assignees: next})
	if err != nil {
		return models.Task{}, taskErr(err, "update assignees")
	}
	s.record(ctx, actor, models.ActionTaskUpdated, t.ID, models.DetailsAssignees(sc.task.Assignees, next))
	return t, nil
}

// AddSubtask appends an open subtask.
func (s *Service) AddSubtask(ctx context.Context, actor, id primitive.ObjectID, title string) (models.Task, error) {
	title = normalize.Name(title)
	if title == "" {
		return models.Task{}, apperr.BadRequest("Title is required")
	}
	if _, err := s.load(ctx, actor, id, workspacepolicy.Edit); err != nil {
		return models.Task{}, err
	}
	st := models.Subtask{ID: primitive.NewObjectID(), Title: title, CreatedAt: s.d.Now().UTC()}
	t, err := s.d.Tasks.AddSubtask(ctx, id, st)
	if err != nil {
		return models.Task{}, taskErr(err, "add subtask")
	}
	s.record(ctx, actor, models.ActionSubtaskCreated, t.ID, models.DetailsSubtask(st))
	return t, nil
}

// SetSubtask marks a subtask completed or open.
func (s *Service) SetSubtask(ctx context.Context, actor, id, subtaskID primitive.ObjectID, completed bool) (models.Task, error) {
	if _, err := s.load(ctx, actor, id, workspacepolicy.Edit); err != nil {
		return models.Task{}, err
	}
	t, err := s.d.Tasks.SetSubtaskCompleted(ctx, id, subtaskID, completed)
	if err != nil {
		return models.Task{}, taskErr(err, "update subtask")
	}
	for _, st := range t.Subtasks {
		if st.ID == subtaskID {
			s.record(ctx, actor, models.ActionSubtaskUpdated, t.ID, models.DetailsSubtask(st))
			break
		}
	}
	return t, nil
}

// Activity returns the newest history entries of a task or project.
func (s *Service) Activity(ctx context.Context, actor, resourceID primitive.ObjectID) ([]models.ActivityLog, error) {
	if _, err := s.load(ctx, actor, resourceID, workspacepolicy.View); err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		if _, _, perr := s.project(ctx, actor, resourceID, workspacepolicy.View); perr != nil {
			if apperr.Is(perr, apperr.KindNotFound) {
				return nil, err
			}
			return nil, perr
		}
	}
	list, err := s.d.Activity.ByResource(ctx, resourceID, ActivityLimit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list activity: %w", err))
	}
	return list, nil
}

// Comments lists the task's comments, newest first.
func (s *Service) Comments(ctx context.Context, actor, id primitive.ObjectID) ([]models.Comment, error) {
	if _, err := s.load(ctx, actor, id, workspacepolicy.View); err != nil {
		return nil, err
	}
	list, err := s.d.Comments.ListByTask(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list comments: %w", err))
	}
	return list, nil
}

// AddComment posts a comment on the task.
func (s *Service) AddComment(ctx context.Context, actor, id primitive.ObjectID, text string) (models.Comment, error) {
	text = strings.TrimSpace(htmlsanitize.Sanitize(text))
	if text == "" {
		return models.Comment{}, apperr.BadRequest("Comment text is required")
	}
	if _, err := s.load(ctx, actor, id, workspacepolicy.Edit); err != nil {
		return models.Comment{}, err
	}
	c, err := s.d.Comments.Create(ctx, models.Comment{Task: id, Author: actor, Text: text})
	if err != nil {
		return models.Comment{}, apperr.Internal(fmt.Errorf("create comment: %w", err))
	}
	s.record(ctx, actor, models.ActionCommentAdded, id, models.DetailsComment(c))
	return c, nil
}

// ToggleWatch adds or removes actor from the watchers.
func (s *Service) ToggleWatch(ctx context.Context, actor, id primitive.ObjectID) (models.Task, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.View)
	if err != nil {
		return models.Task{}, err
	}
	watching := sc.task.IsWatchedBy(actor)
	watchers := make([]primitive.ObjectID, 0, len(sc.task.Watchers)+1)
	for _, w := range sc.task.Watchers {
		if w != actor {
			watchers = append(watchers, w)
		}
	}
	if !watching {
		watchers = append(watchers, actor)
	}
	t, err := s.d.Tasks.Set(ctx, id, taskstore.TaskFields{Watchers: watchers})
	if err != nil {
		return models.Task{}, taskErr(err, "update watchers")
	}
	s.record(ctx, actor, models.ActionTaskWatched, t.ID, models.DetailsWatch(!watching))
	return t, nil
}

// ToggleArchive flips the task's archived flag.
func (s *Service) ToggleArchive(ctx context.Context, actor, id primitive.ObjectID) (models.Task, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Task{}, err
	}
	archived := !sc.task.IsArchived
	t, err := s.d.Tasks.Set(ctx, id, taskstore.TaskFields{Archived: &archived})
	if err != nil {
		return models.Task{}, taskErr(err, "archive task")
	}
	s.record(ctx, actor, models.ActionTaskUpdated, t.ID, models.DetailsArchive(archived))
	return t, nil
}

// Delete removes the task and its comments and unlinks it from the project.
func (s *Service) Delete(ctx context.Context, actor, id primitive.ObjectID) (models.Task, error) {
	sc, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Task{}, err
	}
	err = s.d.Tx.Do(ctx, func(ctx context.Context) error {
		if err := s.d.Projects.RemoveTask(ctx, sc.project.ID, id); err != nil {
			return fmt.Errorf("unlink task: %w", err)
		}
		if _, err := s.d.Comments.DeleteByTasks(ctx, []primitive.ObjectID{id}); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := s.d.Tasks.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, apperr.Internal(err)
	}
	s.record(ctx, actor, models.ActionTaskDeleted, id, models.DetailsNote("deleted task "+sc.task.Title))
	return sc.task, nil
}

func (s *Service) load(ctx context.Context, actor, id primitive.ObjectID, action workspacepolicy.Action) (scope, error) {
	t, err := s.d.Tasks.GetByID(ctx, id)
	if err != nil {
		return scope{}, taskErr(err, "load task")
	}
	p, ws, err := s.project(ctx, actor, t.Project, action)
	if err != nil {
		return scope{}, err
	}
	return scope{task: t, project: p, ws: ws}, nil
}

func (s *Service) project(ctx context.Context, actor, id primitive.ObjectID, action workspacepolicy.Action) (models.Project, models.Workspace, error) {
	p, err := s.d.Projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			return models.Project{}, models.Workspace{}, apperr.NotFound("Project not found")
		}
		return models.Project{}, models.Workspace{}, apperr.Internal(fmt.Errorf("load project: %w", err))
	}
	ws, err := s.d.Workspaces.GetByID(ctx, p.Workspace)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Project{}, models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Project{}, models.Workspace{}, apperr.Internal(fmt.Errorf("load workspace: %w", err))
	}
	if err := workspacepolicy.Check(ws, actor, action); err != nil {
		return models.Project{}, models.Workspace{}, err
	}
	return p, ws, nil
}

func checkAssignees(ws models.Workspace, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if !ws.IsMember(id) {
			return nil, apperr.BadRequest("Assignees must be workspace members")
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func taskErr(err error, op string) error {
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		return apperr.NotFound("Task not found")
	case errors.Is(err, taskstore.ErrSubtaskNotFound):
		return apperr.NotFound("Subtask not found")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func excerpt(s string) string {
	if r := []rune(s); len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}

func (s *Service) record(ctx context.Context, actor primitive.ObjectID, action string, taskID primitive.ObjectID, d models.ActivityDetails) {
	err := s.d.Activity.Record(ctx, models.ActivityLog{
		User:         actor,
		Action:       action,
		ResourceType: models.ResourceTask,
		ResourceID:   taskID,
		Details:      d,
		Timestamp:    s.d.Now().UTC(),
	})
	if err != nil {
		s.d.Log.Warn("failed to record task activity",
			zap.String("action", action), zap.String("task_id", taskID.Hex()), zap.Error(err))
	}
}
