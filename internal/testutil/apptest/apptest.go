// Package apptest wires every service onto the in-memory stores so
// feature handlers can be exercised end to end without MongoDB.
package apptest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/flowbase/internal/app/services/accounts"
	invitesvc "github.com/dalemusser/flowbase/internal/app/services/invitations"
	projectsvc "github.com/dalemusser/flowbase/internal/app/services/projects"
	tasksvc "github.com/dalemusser/flowbase/internal/app/services/tasks"
	workspacesvc "github.com/dalemusser/flowbase/internal/app/services/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/metrics"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil"
	"github.com/dalemusser/flowbase/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// FrontendURL is the base used for links in test mail.
const FrontendURL = "https://app.example.com"

// Env is one fully wired application over memstore.
type Env struct {
	Ctx      context.Context
	DB       *memstore.DB
	Mail     *memstore.Mailer
	Issuer   *tokens.Issuer
	Sessions *auth.SessionManager
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      time.Time

	Accounts   *accounts.Service
	Workspaces *workspacesvc.Service
	Invites    *invitesvc.Service
	Projects   *projectsvc.Service
	Tasks      *tasksvc.Service
}

// Options adjusts the environment.
type Options struct {
	OpenJoin bool
}

// New builds an Env with the clock fixed at Wed 2026-10-14 12:00 UTC.
func New(t *testing.T, opts ...Options) *Env {
	t.Helper()
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	e := &Env{
		Ctx:     context.Background(),
		DB:      memstore.New(),
		Mail:    &memstore.Mailer{},
		Metrics: metrics.New(),
		Log:     zap.NewNop(),
		Now:     time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.Now }

	iss, err := tokens.NewIssuer(strings.Repeat("t", tokens.MinSecretLength), "flowbase-test", tokens.WithClock(clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	e.Issuer = iss
	sm, err := auth.NewSessionManager(strings.Repeat("c", 32), "flowbase-test", "", time.Hour, false, iss, e.DB.Users, e.Log)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	e.Sessions = sm

	e.Accounts = accounts.New(accounts.Deps{
		Users:         e.DB.Users,
		Verifications: e.DB.Verifications,
		Tokens:        iss,
		Mail:          e.Mail,
		FrontendURL:   FrontendURL,
		BcryptCost:    bcrypt.MinCost,
		Log:           e.Log,
		Now:           clock,
	})
	e.Workspaces = workspacesvc.New(workspacesvc.Deps{
		Workspaces:  e.DB.Workspaces,
		Users:       e.DB.Users,
		Projects:    e.DB.Projects,
		Tasks:       e.DB.Tasks,
		Comments:    e.DB.Comments,
		Invitations: e.DB.Invitations,
		Activity:    e.DB.Activity,
		Tx:          memstore.Tx{},
		Log:         e.Log,
		Now:         clock,
	})
	e.Invites = invitesvc.New(invitesvc.Deps{
		Workspaces:  e.DB.Workspaces,
		Users:       e.DB.Users,
		Invitations: e.DB.Invitations,
		Activity:    e.DB.Activity,
		Tokens:      iss,
		Mail:        e.Mail,
		FrontendURL: FrontendURL,
		OpenJoin:    o.OpenJoin,
		Log:         e.Log,
		Now:         clock,
	})
	e.Projects = projectsvc.New(projectsvc.Deps{
		Workspaces: e.DB.Workspaces,
		Projects:   e.DB.Projects,
		Tasks:      e.DB.Tasks,
		Comments:   e.DB.Comments,
		Activity:   e.DB.Activity,
		Tx:         memstore.Tx{},
		Log:        e.Log,
		Now:        clock,
	})
	e.Tasks = tasksvc.New(tasksvc.Deps{
		Workspaces: e.DB.Workspaces,
		Projects:   e.DB.Projects,
		Tasks:      e.DB.Tasks,
		Comments:   e.DB.Comments,
		Activity:   e.DB.Activity,
		Tx:         memstore.Tx{},
		Log:        e.Log,
		Now:        clock,
	})
	return e
}

// User stores a verified account and returns it as a request identity.
func (e *Env) User(t *testing.T, email string) testutil.TestUser {
	t.Helper()
	u, err := e.DB.Users.Create(e.Ctx, models.User{FullName: "User " + email, Email: email, IsEmailVerified: true, Role: models.UserRoleUser})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return testutil.TestUser{ID: u.ID, Name: u.FullName, Email: u.Email, Role: u.Role, Verified: true}
}

// Workspace creates a workspace owned by owner and adds members with roles.
func (e *Env) Workspace(t *testing.T, owner testutil.TestUser, members map[primitive.ObjectID]string) models.Workspace {
	t.Helper()
	ws, err := e.Workspaces.Create(e.Ctx, owner.ID, workspacesvc.CreateInput{Name: "Team"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	for id, role := range members {
		if _, err := e.DB.Workspaces.AddMember(e.Ctx, ws.ID, models.Member{User: id, Role: role, JoinedAt: e.Now}); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	ws, _ = e.DB.Workspaces.GetByID(e.Ctx, ws.ID)
	return ws
}

// Project creates a project in ws as creator.
func (e *Env) Project(t *testing.T, creator testutil.TestUser, ws models.Workspace) models.Project {
	t.Helper()
	p, err := e.Projects.Create(e.Ctx, creator.ID, ws.ID, projectsvc.CreateInput{Title: "Launch"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// Task creates a task in p as creator.
func (e *Env) Task(t *testing.T, creator testutil.TestUser, p models.Project) models.Task {
	t.Helper()
	task, err := e.Tasks.Create(e.Ctx, creator.ID, p.ID, tasksvc.CreateInput{Title: "Write docs"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
