package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWorkspaces_ReplaceMembershipChecksRevision(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	owner := primitive.NewObjectID()
	ws, _ := db.Workspaces.Create(ctx, models.NewWorkspace("A", "", "", owner, time.Now()))

	stale := ws
	if _, err := db.Workspaces.AddMember(ctx, ws.ID, models.Member{User: primitive.NewObjectID(), Role: models.RoleMember}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := db.Workspaces.ReplaceMembership(ctx, stale); !errors.Is(err, workspacestore.ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
}

func TestWorkspaces_AddMemberMissing(t *testing.T) {
	db := memstore.New()
	_, err := db.Workspaces.AddMember(context.Background(), primitive.NewObjectID(), models.Member{User: primitive.NewObjectID()})
	if !errors.Is(err, workspacestore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
