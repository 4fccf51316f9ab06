// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/flowbase/internal/app/store/activity"
	"github.com/dalemusser/flowbase/internal/app/store/audit"
	commentstore "github.com/dalemusser/flowbase/internal/app/store/comments"
	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"go.mongodb.org/mongo-driver/mongo"
)

type ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

// Collections lists every collection with indexes, in creation order.
func Collections(db *mongo.Database) []struct {
	Name  string
	Store ensurer
} {
	return []struct {
		Name  string
		Store ensurer
	}{
		{"users", userstore.New(db)},
		{"workspaces", workspacestore.New(db)},
		{"workspace_invitations", invitationstore.New(db)},
		{"projects", projectstore.New(db)},
		{"tasks", taskstore.New(db)},
		{"comments", commentstore.New(db)},
		{"activity_logs", activity.New(db)},
		{"verifications", emailverify.New(db)},
		{"audit_events", audit.New(db)},
	}
}

/*
EnsureAll is called at startup. Each store's EnsureIndexes is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, c := range Collections(db) {
		if err := c.Store.EnsureIndexes(ctx); err != nil {
			problems = append(problems, c.Name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
