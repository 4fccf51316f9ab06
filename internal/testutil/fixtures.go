package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a verified user with a placeholder password hash.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	u, err := userstore.New(f.db).Create(ctx, models.User{
		FullName:        fullName,
		Email:           email,
		PasswordHash:    "$2a$10$fixturefixturefixturefixturefixturefixturefixturefix",
		IsEmailVerified: true,
	})
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateWorkspace creates a workspace owned by owner.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name string, owner primitive.ObjectID) models.Workspace {
	f.t.Helper()

	ws := models.NewWorkspace(name, "", "", owner, time.Now().UTC())
	ws, err := workspacestore.New(f.db).Create(ctx, ws)
	if err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// AddMember appends userID to the workspace with role.
func (f *Fixtures) AddMember(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) {
	f.t.Helper()

	added, err := workspacestore.New(f.db).AddMember(ctx, workspaceID, models.Member{
		User:     userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil || !added {
		f.t.Fatalf("failed to add test member: added=%v err=%v", added, err)
	}
}

// CreateProject creates a project in workspaceID and links it.
func (f *Fixtures) CreateProject(ctx context.Context, workspaceID, creator primitive.ObjectID, title string) models.Project {
	f.t.Helper()

	p, err := projectstore.New(f.db).Create(ctx, models.Project{
		Title:     title,
		Workspace: workspaceID,
		CreatedBy: creator,
		Members:   []models.ProjectMember{{User: creator, Role: models.ProjectManager}},
	})
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	if err := workspacestore.New(f.db).AddProject(ctx, workspaceID, p.ID); err != nil {
		f.t.Fatalf("failed to link test project: %v", err)
	}
	return p
}

// CreateTask creates a task in projectID and links it.
func (f *Fixtures) CreateTask(ctx context.Context, projectID, creator primitive.ObjectID, title string) models.Task {
	f.t.Helper()

	task, err := taskstore.New(f.db).Create(ctx, models.Task{
		Title:     title,
		Project:   projectID,
		CreatedBy: creator,
	})
	if err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	if err := projectstore.New(f.db).AddTask(ctx, projectID, task.ID); err != nil {
		f.t.Fatalf("failed to link test task: %v", err)
	}
	return task
}
