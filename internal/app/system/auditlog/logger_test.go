package auditlog_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/flowbase/internal/app/store/audit"
	"github.com/dalemusser/flowbase/internal/app/system/auditlog"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID())
	logger.InviteSent(ctx, req, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "member")
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
	}{
		{auditlog.Off, 0},
		{auditlog.Log, 0},
		{auditlog.DB, 1},
		{auditlog.All, 1},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			userID := primitive.NewObjectID()
			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: tt.setting, Workspace: tt.setting})
			logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/", nil), userID)

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.wantDB {
				t.Errorf("stored %d events, want %d", len(events), tt.wantDB)
			}
		})
	}
}

func TestLogger_LoginFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DB})
	req := httptest.NewRequest("POST", "/api-v1/auth/login", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	since := time.Now().Add(-time.Minute)

	logger.LoginFailedUserNotFound(ctx, req, "ghost@example.com")
	logger.LoginFailedWrongPassword(ctx, req, primitive.NewObjectID())
	logger.LoginSuccess(ctx, req, primitive.NewObjectID())

	events, err := store.GetFailedLogins(ctx, since, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 failed logins, got %d", len(events))
	}
	for _, e := range events {
		if e.IP != "192.168.1.1" {
			t.Errorf("IP = %q, want 192.168.1.1", e.IP)
		}
		if e.FailureReason == "" {
			t.Errorf("%s: missing failure reason", e.EventType)
		}
	}
}

func TestLogger_OwnershipTransferred(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Workspace: auditlog.All})
	actor, ws, newOwner := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.OwnershipTransferred(ctx, httptest.NewRequest("POST", "/", nil), actor, ws, newOwner)

	events, err := store.GetByUser(ctx, newOwner, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventOwnershipTransferred || e.ActorID == nil || *e.ActorID != actor {
		t.Errorf("unexpected event %+v", e)
	}
	if e.WorkspaceID == nil || *e.WorkspaceID != ws {
		t.Errorf("WorkspaceID = %v, want %v", e.WorkspaceID, ws)
	}
}
