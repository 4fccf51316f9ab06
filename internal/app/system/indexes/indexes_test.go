package indexes_test

import (
	"testing"

	"github.com/dalemusser/flowbase/internal/app/system/indexes"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":                 {"uniq_users_email"},
		"workspaces":            {"idx_ws_members_user_created", "idx_ws_owner"},
		"workspace_invitations": {"uniq_invite_user_workspace", "idx_invite_expires_ttl"},
		"projects":              {"idx_project_workspace_created"},
		"tasks":                 {"idx_task_project_created", "idx_task_assignees"},
		"comments":              {"idx_comment_task_created"},
		"activity_logs":         {"idx_activity_resource", "idx_activity_user"},
		"verifications":         {"idx_verify_expires_ttl", "uniq_verify_user_purpose"},
	}
	for coll, want := range expected {
		names := indexNames(t, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}
