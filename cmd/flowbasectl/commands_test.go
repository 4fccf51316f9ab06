package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/flowbase/internal/app/store/audit"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func run(t *testing.T, dbName string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--mongo-uri", testutil.MongoURI(), "--mongo-database", dbName}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexesCmd(t *testing.T) {
	db := testutil.SetupTestDB(t)

	out, err := run(t, db.Name(), "indexes")
	if err != nil {
		t.Fatalf("indexes: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok  workspaces") {
		t.Errorf("output missing workspaces line:\n%s", out)
	}
}

func TestVerifyUserCmd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	u, err := users.Create(ctx, models.User{FullName: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	out, err := run(t, db.Name(), "verify-user", "ada@example.com")
	if err != nil {
		t.Fatalf("verify-user: %v\n%s", err, out)
	}
	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsEmailVerified {
		t.Error("user not verified")
	}

	out, err = run(t, db.Name(), "verify-user", "ada@example.com")
	if err != nil || !strings.Contains(out, "already verified") {
		t.Errorf("second run: err=%v out=%q", err, out)
	}

	if _, err := run(t, db.Name(), "verify-user", "nobody@example.com"); err == nil {
		t.Error("expected error for unknown email")
	}
}

func TestPurgeExpiredCmd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invites := invitationstore.New(db)
	now := time.Now().UTC()
	for _, exp := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		if _, err := invites.Create(ctx, models.Invitation{
			User:        primitive.NewObjectID(),
			WorkspaceID: primitive.NewObjectID(),
			Token:       "tok",
			Role:        models.RoleMember,
			InvitedBy:   primitive.NewObjectID(),
			ExpiresAt:   exp,
			CreatedAt:   now,
		}); err != nil {
			t.Fatalf("create invitation: %v", err)
		}
	}

	out, err := run(t, db.Name(), "purge-expired")
	if err != nil {
		t.Fatalf("purge-expired: %v\n%s", err, out)
	}
	// The TTL monitor may already have removed the expired row.
	if !strings.Contains(out, "purged 1 expired records") && !strings.Contains(out, "purged 0 expired records") {
		t.Errorf("output = %q", out)
	}
	n, err := db.Collection("workspace_invitations").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("remaining invitations = %d, want 1", n)
	}
}

func TestWorkspaceOwnersCmd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	fx.CreateWorkspace(ctx, "Healthy", owner.ID)

	out, err := run(t, db.Name(), "workspace-owners")
	if err != nil {
		t.Fatalf("workspace-owners: %v\n%s", err, out)
	}
	if !strings.Contains(out, "consistent owner") {
		t.Errorf("output = %q", out)
	}

	broken := fx.CreateWorkspace(ctx, "Broken", owner.ID)
	if _, err := db.Collection("workspaces").UpdateByID(ctx, broken.ID,
		bson.M{"$set": bson.M{"owner": primitive.NewObjectID()}}); err != nil {
		t.Fatalf("break workspace: %v", err)
	}

	out, err = run(t, db.Name(), "workspace-owners")
	if err == nil {
		t.Fatal("expected error when a workspace is inconsistent")
	}
	if !strings.Contains(out, broken.ID.Hex()) {
		t.Errorf("output missing broken workspace:\n%s", out)
	}
}

func TestFailedLoginsCmd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginFailedUserNotFound,
		IP:        "10.0.0.1",
		Details:   map[string]string{"attempted_email": "ghost@example.com"},
	})
	store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Success:   true,
	})

	out, err := run(t, db.Name(), "failed-logins", "--since", "1h")
	if err != nil {
		t.Fatalf("failed-logins: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ghost@example.com") || !strings.Contains(out, "1 failed logins") {
		t.Errorf("output = %q", out)
	}
}
