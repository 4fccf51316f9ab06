// Package workspacesvc implements the workspace membership lifecycle:
// creation, reads gated by membership, detail edits, ownership transfer
// and cascading deletion.
package workspacesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/flowbase/internal/app/policy/workspacepolicy"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/normalize"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxTransferAttempts bounds retries when the membership list changes
// between reading the workspace and writing the transfer.
const MaxTransferAttempts = 3

// Workspaces is the workspace persistence the service needs.
type Workspaces interface {
	Create(ctx context.Context, ws models.Workspace) (models.Workspace, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Workspace, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, name, description, color string) (models.Workspace, error)
	ReplaceMembership(ctx context.Context, ws models.Workspace) (models.Workspace, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Users resolves accounts by email and expands member ids.
type Users interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// Projects is the project persistence used for reads and cascade.
type Projects interface {
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, includeArchived bool) ([]models.Project, error)
	IDsByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

// Tasks is the task persistence used for reads and cascade.
type Tasks interface {
	ListByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error)
	ListArchived(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error)
	IDsByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteByProjects(ctx context.Context, projectIDs []primitive.ObjectID) (int64, error)
}

// Comments is the comment persistence used by the cascade.
type Comments interface {
	DeleteByTasks(ctx context.Context, taskIDs []primitive.ObjectID) (int64, error)
}

// Invitations is the invitation persistence used by the cascade.
type Invitations interface {
	DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

// Activity records and purges resource history.
type Activity interface {
	Record(ctx context.Context, entry models.ActivityLog) error
	DeleteByResources(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// Transactor runs fn atomically where the database allows it.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps wires the service. Now defaults to time.Now.
type Deps struct {
	Workspaces  Workspaces
	Users       Users
	Projects    Projects
	Tasks       Tasks
	Comments    Comments
	Invitations Invitations
	Activity    Activity
	Tx          Transactor
	Log         *zap.Logger
	Now         func() time.Time
}

// Service implements workspace operations for an authenticated caller.
type Service struct {
	d Deps
}

// New returns a Service.
func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{d: d}
}

// CreateInput holds the fields of a new workspace.
type CreateInput struct {
	Name        string
	Description string
	Color       string
}

// Create makes a workspace with actor as its owner and only member.
func (s *Service) Create(ctx context.Context, actor primitive.ObjectID, in CreateInput) (models.Workspace, error) {
	ws := models.NewWorkspace(normalize.Name(in.Name), in.Description, normalize.Color(in.Color), actor, s.d.Now().UTC())
	ws, err := s.d.Workspaces.Create(ctx, ws)
	if err != nil {
		return models.Workspace{}, apperr.Internal(fmt.Errorf("create workspace: %w", err))
	}
	s.record(ctx, actor, models.ActionWorkspaceCreated, ws.ID, models.DetailsNote("Created "+ws.Name+" workspace"))
	return ws, nil
}

// List returns the workspaces actor belongs to, newest first.
func (s *Service) List(ctx context.Context, actor primitive.ObjectID) ([]models.Workspace, error) {
	list, err := s.d.Workspaces.ListForUser(ctx, actor)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list workspaces: %w", err))
	}
	return list, nil
}

// Load fetches a workspace and checks that actor may perform action.
func (s *Service) Load(ctx context.Context, actor, id primitive.ObjectID, action workspacepolicy.Action) (models.Workspace, error) {
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

// Detail is a workspace with its members expanded.
type Detail struct {
	models.Workspace
	Members []models.MemberView `json:"members"`
}

// Get returns the workspace with member summaries.
func (s *Service) Get(ctx context.Context, actor, id primitive.ObjectID) (Detail, error) {
	ws, err := s.Load(ctx, actor, id, workspacepolicy.View)
	if err != nil {
		return Detail{}, err
	}
	return s.expand(ctx, ws)
}

func (s *Service) expand(ctx context.Context, ws models.Workspace) (Detail, error) {
	sums, err := s.d.Users.Summaries(ctx, ws.MemberIDs())
	if err != nil {
		return Detail{}, apperr.Internal(fmt.Errorf("load member summaries: %w", err))
	}
	views := make([]models.MemberView, 0, len(ws.Members))
	for _, m := range ws.Members {
		sum, ok := sums[m.User]
		if !ok {
			sum = models.UserSummary{ID: m.User}
		}
		views = append(views, models.MemberView{User: sum, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return Detail{Workspace: ws, Members: views}, nil
}

// ProjectSummary is a project with the statuses of its tasks.
type ProjectSummary struct {
	models.Project
	TaskStatuses []TaskStatus `json:"task_statuses"`
}

// TaskStatus is the id and status of one task.
type TaskStatus struct {
	ID     primitive.ObjectID `json:"id"`
	Status string             `json:"status"`
}

// ProjectsView is the project listing of a workspace.
type ProjectsView struct {
	Workspace Detail           `json:"workspace"`
	Projects  []ProjectSummary `json:"projects"`
}

// Projects lists the workspace's active projects that actor takes part in.
func (s *Service) Projects(ctx context.Context, actor, id primitive.ObjectID) (ProjectsView, error) {
	ws, err := s.Load(ctx, actor, id, workspacepolicy.View)
	if err != nil {
		return ProjectsView{}, err
	}
	detail, err := s.expand(ctx, ws)
	if err != nil {
		return ProjectsView{}, err
	}
	projects, err := s.d.Projects.ListByWorkspace(ctx, id, false)
	if err != nil {
		return ProjectsView{}, apperr.Internal(fmt.Errorf("list projects: %w", err))
	}

	mine := make([]models.Project, 0, len(projects))
	ids := make([]primitive.ObjectID, 0, len(projects))
	for _, p := range projects {
		if projectHasMember(p, actor) {
			mine = append(mine, p)
			ids = append(ids, p.ID)
		}
	}
	tasks, err := s.d.Tasks.ListByProjects(ctx, ids)
	if err != nil {
		return ProjectsView{}, apperr.Internal(fmt.Errorf("list project tasks: %w", err))
	}
	byProject := make(map[primitive.ObjectID][]TaskStatus, len(mine))
	for _, t := range tasks {
		byProject[t.Project] = append(byProject[t.Project], TaskStatus{ID: t.ID, Status: t.Status})
	}

	out := make([]ProjectSummary, 0, len(mine))
	for _, p := range mine {
		st := byProject[p.ID]
		if st == nil {
			st = []TaskStatus{}
		}
		out = append(out, ProjectSummary{Project: p, TaskStatuses: st})
	}
	return ProjectsView{Workspace: detail, Projects: out}, nil
}

func projectHasMember(p models.Project, userID primitive.ObjectID) bool {
	for _, m := range p.Members {
		if m.User == userID {
			return true
		}
	}
	return false
}

// Stats aggregates every project and task of the workspace.
func (s *Service) Stats(ctx context.Context, actor, id primitive.ObjectID) (Stats, error) {
	if _, err := s.Load(ctx, actor, id, workspacepolicy.View); err != nil {
		return Stats{}, err
	}
	projects, err := s.d.Projects.ListByWorkspace(ctx, id, true)
	if err != nil {
		return Stats{}, apperr.Internal(fmt.Errorf("list projects: %w", err))
	}
	ids := make([]primitive.ObjectID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	tasks, err := s.d.Tasks.ListByProjects(ctx, ids)
	if err != nil {
		return Stats{}, apperr.Internal(fmt.Errorf("list tasks: %w", err))
	}
	return Compute(projects, tasks, s.d.Now()), nil
}

// Archived returns the archived tasks of every project in the workspace.
func (s *Service) Archived(ctx context.Context, actor, id primitive.ObjectID) ([]models.Task, error) {
	if _, err := s.Load(ctx, actor, id, workspacepolicy.View); err != nil {
		return nil, err
	}
	ids, err := s.d.Projects.IDsByWorkspace(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list project ids: %w", err))
	}
	tasks, err := s.d.Tasks.ListArchived(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list archived tasks: %w", err))
	}
	return tasks, nil
}

// UpdateInput holds editable workspace details. Name is required and
// Description is stored as given, so an empty one clears it. An empty
// Color keeps the current color.
type UpdateInput struct {
	Name        string
	Description string
	Color       string
}

// Update edits the workspace's name, description and color.
func (s *Service) Update(ctx context.Context, actor, id primitive.ObjectID, in UpdateInput) (models.Workspace, error) {
	if _, err := s.Load(ctx, actor, id, workspacepolicy.UpdateDetails); err != nil {
		return models.Workspace{}, err
	}
	ws, err := s.d.Workspaces.UpdateDetails(ctx, id, normalize.Name(in.Name), in.Description, normalize.Color(in.Color))
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Workspace{}, apperr.Internal(fmt.Errorf("update workspace: %w", err))
	}
	s.record(ctx, actor, models.ActionWorkspaceUpdated, ws.ID, models.DetailsNote("Updated workspace details"))
	return ws, nil
}

// Transfer makes the account with newOwnerEmail the owner and demotes
// actor to admin. The new owner joins as a member first if needed.
//
// The membership list is written with a revision check; a concurrent
// change causes a reload and another attempt, so two racing transfers
// can never leave two owners.
func (s *Service) Transfer(ctx context.Context, actor, id primitive.ObjectID, newOwnerEmail string) (models.Workspace, int, error) {
	if _, err := s.Load(ctx, actor, id, workspacepolicy.Transfer); err != nil {
		return models.Workspace{}, 0, err
	}
	newOwner, err := s.d.Users.GetByEmail(ctx, normalize.Email(newOwnerEmail))
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.Workspace{}, 0, apperr.NotFound("New owner not found")
		}
		return models.Workspace{}, 0, apperr.Internal(fmt.Errorf("find new owner: %w", err))
	}

	for attempt := 1; attempt <= MaxTransferAttempts; attempt++ {
		ws, err := s.Load(ctx, actor, id, workspacepolicy.Transfer)
		if err != nil {
			return models.Workspace{}, attempt - 1, err
		}
		if err := ws.TransferOwnership(actor, newOwner.ID, s.d.Now().UTC()); err != nil {
			switch {
			case errors.Is(err, models.ErrSelfTransfer):
				return models.Workspace{}, attempt - 1, apperr.BadRequest("You already own this workspace")
			case errors.Is(err, models.ErrNotOwner):
				return models.Workspace{}, attempt - 1, apperr.Forbidden("Only workspace owners can transfer workspaces")
			}
			return models.Workspace{}, attempt - 1, apperr.Internal(err)
		}
		saved, err := s.d.Workspaces.ReplaceMembership(ctx, ws)
		if err == nil {
			s.record(ctx, actor, models.ActionMemberAdded, id,
				models.DetailsMember(newOwner.ID, models.RoleOwner, "ownership transferred"))
			return saved, attempt - 1, nil
		}
		if !errors.Is(err, workspacestore.ErrStale) {
			return models.Workspace{}, attempt - 1, apperr.Internal(fmt.Errorf("save transfer: %w", err))
		}
		s.d.Log.Info("workspace changed during transfer; retrying",
			zap.String("workspace_id", id.Hex()), zap.Int("attempt", attempt))
	}
	return models.Workspace{}, MaxTransferAttempts - 1,
		apperr.Conflict("Workspace was modified concurrently, please try again")
}

// DeleteResult counts the records removed by Delete.
type DeleteResult struct {
	Workspace   models.Workspace
	Projects    int64
	Tasks       int64
	Comments    int64
	Invitations int64
}

// Delete removes the workspace with its projects, tasks, comments,
// invitations and their history. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, actor, id primitive.ObjectID) (DeleteResult, error) {
	ws, err := s.Load(ctx, actor, id, workspacepolicy.Delete)
	if err != nil {
		return DeleteResult{}, err
	}

	var res DeleteResult
	err = s.d.Tx.Do(ctx, func(ctx context.Context) error {
		res = DeleteResult{Workspace: ws}

		projectIDs, err := s.d.Projects.IDsByWorkspace(ctx, id)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		taskIDs, err := s.d.Tasks.IDsByProjects(ctx, projectIDs)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if res.Comments, err = s.d.Comments.DeleteByTasks(ctx, taskIDs); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if res.Tasks, err = s.d.Tasks.DeleteByProjects(ctx, projectIDs); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if res.Projects, err = s.d.Projects.DeleteByWorkspace(ctx, id); err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		if res.Invitations, err = s.d.Invitations.DeleteByWorkspace(ctx, id); err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		history := append(append(append([]primitive.ObjectID{}, taskIDs...), projectIDs...), id)
		if _, err := s.d.Activity.DeleteByResources(ctx, history); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		if _, err := s.d.Workspaces.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete workspace: %w", err)
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, apperr.Internal(err)
	}
	return res, nil
}

// record writes an activity entry. Failures are logged and otherwise ignored.
func (s *Service) record(ctx context.Context, actor primitive.ObjectID, action string, wsID primitive.ObjectID, d models.ActivityDetails) {
	err := s.d.Activity.Record(ctx, models.ActivityLog{
		User:         actor,
		Action:       action,
		ResourceType: models.ResourceWorkspace,
		ResourceID:   wsID,
		Details:      d,
		Timestamp:    s.d.Now().UTC(),
	})
	if err != nil {
		s.d.Log.Warn("failed to record workspace activity",
			zap.String("action", action), zap.String("workspace_id", wsID.Hex()), zap.Error(err))
	}
}
