// Package projectsvc manages the projects inside a workspace.
package projectsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/flowbase/internal/app/policy/workspacepolicy"
	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/htmlsanitize"
	"github.com/dalemusser/flowbase/internal/app/system/normalize"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Workspaces interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error)
	AddProject(ctx context.Context, id, projectID primitive.ObjectID) error
	RemoveProject(ctx context.Context, id, projectID primitive.ObjectID) error
}

type Projects interface {
	Create(ctx context.Context, p models.Project) (models.Project, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, upd projectstore.ProjectUpdate) (models.Project, error)
	SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (models.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Tasks interface {
	ListByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error)
	IDsByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteByProjects(ctx context.Context, projectIDs []primitive.ObjectID) (int64, error)
}

type Comments interface {
	DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (int64, error)
}

type Activity interface {
	Record(ctx context.Context, entry models.ActivityLog) error
	DeleteByResources(ctx context.Context, ids []primitive.ObjectID) (int64, error)
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

// CreateInput holds the fields of a new project. Members must belong to
// the workspace; the creator is always added as manager.
type CreateInput struct {
	Title       string
	Description string
	Status      string
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        []string
	Members     []models.ProjectMember
}

// Create adds a project to the workspace.
func (s *Service) Create(ctx context.Context, actor, workspaceID primitive.ObjectID, in CreateInput) (models.Project, error) {
	ws, err := s.workspace(ctx, workspaceID, actor, workspacepolicy.Edit)
	if err != nil {
		return models.Project{}, err
	}
	if in.Status != "" && !models.IsValidProjectStatus(in.Status) {
		return models.Project{}, apperr.BadRequest("Invalid project status")
	}

	members := []models.ProjectMember{{User: actor, Role: models.ProjectManager}}
	for _, m := range in.Members {
		if m.User == actor {
			continue
		}
		if !ws.IsMember(m.User) {
			return models.Project{}, apperr.BadRequest("Project members must belong to the workspace")
		}
		role := m.Role
		if role == "" {
			role = models.ProjectContributor
		}
		members = append(members, models.ProjectMember{User: m.User, Role: role})
	}

	p, err := s.d.Projects.Create(ctx, models.Project{
		Title:       normalize.Name(in.Title),
		Description: htmlsanitize.Sanitize(in.Description),
		Status:      in.Status,
		Workspace:   ws.ID,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Members:     members,
		CreatedBy:   actor,
	})
	if err != nil {
		return models.Project{}, apperr.Internal(fmt.Errorf("create project: %w", err))
	}
	if err := s.d.Workspaces.AddProject(ctx, ws.ID, p.ID); err != nil {
		return models.Project{}, apperr.Internal(fmt.Errorf("link project: %w", err))
	}
	s.record(ctx, actor, models.ActionProjectCreated, p.ID, models.DetailsNote("created project "+p.Title))
	return p, nil
}

// Get returns a project the caller can see.
func (s *Service) Get(ctx context.Context, actor, id primitive.ObjectID) (models.Project, error) {
	p, _, err := s.load(ctx, actor, id, workspacepolicy.View)
	return p, err
}

// Tasks returns the project with its active tasks, newest first.
func (s *Service) Tasks(ctx context.Context, actor, id primitive.ObjectID) (models.ProjectWithTasks, error) {
	p, _, err := s.load(ctx, actor, id, workspacepolicy.View)
	if err != nil {
		return models.ProjectWithTasks{}, err
	}
	all, err := s.d.Tasks.ListByProjects(ctx, []primitive.ObjectID{p.ID})
	if err != nil {
		return models.ProjectWithTasks{}, apperr.Internal(fmt.Errorf("list tasks: %w", err))
	}
	active := make([]models.Task, 0, len(all))
	for _, t := range all {
		if !t.IsArchived {
			active = append(active, t)
		}
	}
	return models.ProjectWithTasks{Project: p, TaskDocs: active}, nil
}

// UpdateInput holds editable project fields. Nil means unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	StartDate   *time.Time
	DueDate     *time.Time
	Progress    *int
	Tags        []string
}

// Update edits project details.
func (s *Service) Update(ctx context.Context, actor, id primitive.ObjectID, in UpdateInput) (models.Project, error) {
	before, _, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Project{}, err
	}
	upd := projectstore.ProjectUpdate{
		StartDate: in.StartDate,
		DueDate:   in.DueDate,
		Tags:      in.Tags,
	}
	if in.Title != nil {
		t := normalize.Name(*in.Title)
		if t == "" {
			return models.Project{}, apperr.BadRequest("Title is required")
		}
		upd.Title = &t
	}
	if in.Description != nil {
		d := htmlsanitize.Sanitize(*in.Description)
		upd.Description = &d
	}
	if in.Status != nil {
		if !models.IsValidProjectStatus(*in.Status) {
			return models.Project{}, apperr.BadRequest("Invalid project status")
		}
		upd.Status = in.Status
	}
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		return models.Project{}, apperr.BadRequest("Progress must be between 0 and 100")
	}
	upd.Progress = in.Progress

	p, err := s.d.Projects.Update(ctx, id, upd)
	if err != nil {
		return models.Project{}, s.projectErr(err, "update project")
	}
	details := models.DetailsNote("updated project details")
	if upd.Status != nil && *upd.Status != before.Status {
		details = models.DetailsChange("status", before.Status, p.Status)
	}
	s.record(ctx, actor, models.ActionProjectUpdated, p.ID, details)
	return p, nil
}

// ToggleArchive flips the project's archived flag.
func (s *Service) ToggleArchive(ctx context.Context, actor, id primitive.ObjectID) (models.Project, error) {
	before, _, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return models.Project{}, err
	}
	p, err := s.d.Projects.SetArchived(ctx, id, !before.IsArchived)
	if err != nil {
		return models.Project{}, s.projectErr(err, "archive project")
	}
	s.record(ctx, actor, models.ActionProjectUpdated, p.ID, models.DetailsArchive(p.IsArchived))
	return p, nil
}

// DeleteResult counts what Delete removed.
type DeleteResult struct {
	Project  models.Project
	Tasks    int64
	Comments int64
}

// Delete removes the project with its tasks, their comments and history.
func (s *Service) Delete(ctx context.Context, actor, id primitive.ObjectID) (DeleteResult, error) {
	p, ws, err := s.load(ctx, actor, id, workspacepolicy.Edit)
	if err != nil {
		return DeleteResult{}, err
	}
	res := DeleteResult{Project: p}
	err = s.d.Tx.Do(ctx, func(ctx context.Context) error {
		ids := []primitive.ObjectID{p.ID}
		taskIDs, err := s.d.Tasks.IDsByProjects(ctx, ids)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if res.Comments, err = s.d.Comments.DeleteByTasks(ctx, taskIDs); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if res.Tasks, err = s.d.Tasks.DeleteByProjects(ctx, ids); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if _, err := s.d.Activity.DeleteByResources(ctx, append(taskIDs, p.ID)); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		if err := s.d.Projects.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if err := s.d.Workspaces.RemoveProject(ctx, ws.ID, p.ID); err != nil {
			return fmt.Errorf("unlink project: %w", err)
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, apperr.Internal(err)
	}
	s.recordOn(ctx, actor, models.ActionProjectDeleted, models.ResourceWorkspace, ws.ID,
		models.DetailsNote("deleted project "+p.Title))
	return res, nil
}

// load fetches the project and its workspace and checks action.
func (s *Service) load(ctx context.Context, actor, id primitive.ObjectID, action workspacepolicy.Action) (models.Project, models.Workspace, error) {
	p, err := s.d.Projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, models.Workspace{}, s.projectErr(err, "load project")
	}
	ws, err := s.workspace(ctx, p.Workspace, actor, action)
	if err != nil {
		return models.Project{}, models.Workspace{}, err
	}
	return p, ws, nil
}

func (s *Service) workspace(ctx context.Context, id, actor primitive.ObjectID, action workspacepolicy.Action) (models.Workspace, error) {
	ws, err := s.d.Workspaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Workspace{}, apperr.Internal(fmt.Errorf("load workspace: %w", err))
	}
	if err := workspacepolicy.Check(ws, actor, action); err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

func (s *Service) projectErr(err error, op string) error {
	if errors.Is(err, projectstore.ErrNotFound) {
		return apperr.NotFound("Project not found")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func (s *Service) record(ctx context.Context, actor primitive.ObjectID, action string, projectID primitive.ObjectID, d models.ActivityDetails) {
	s.recordOn(ctx, actor, action, models.ResourceProject, projectID, d)
}

func (s *Service) recordOn(ctx context.Context, actor primitive.ObjectID, action, resourceType string, resourceID primitive.ObjectID, d models.ActivityDetails) {
	err := s.d.Activity.Record(ctx, models.ActivityLog{
		User:         actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      d,
		Timestamp:    s.d.Now().UTC(),
	})
	if err != nil {
		s.d.Log.Warn("failed to record project activity",
			zap.String("action", action), zap.String("resource_id", resourceID.Hex()), zap.Error(err))
	}
}
