package projectstore_test

import (
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, models.Project{Title: "Launch", Workspace: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Status != models.ProjectPlanning {
		t.Errorf("Status = %q, want planning", p.Status)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Tasks == nil || got.Members == nil {
		t.Error("expected empty, non-nil task and member lists")
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, projectstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListByWorkspace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws := primitive.NewObjectID()
	store.Create(ctx, models.Project{Title: "Active", Workspace: ws})
	archived, _ := store.Create(ctx, models.Project{Title: "Archived", Workspace: ws})
	store.Create(ctx, models.Project{Title: "Elsewhere", Workspace: primitive.NewObjectID()})
	if _, err := store.SetArchived(ctx, archived.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	tests := []struct {
		name            string
		includeArchived bool
		want            int
	}{
		{"active only", false, 1},
		{"with archived", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListByWorkspace(ctx, ws, tt.includeArchived)
			if err != nil {
				t.Fatalf("ListByWorkspace: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d projects, want %d", len(got), tt.want)
			}
		})
	}

	ids, err := store.IDsByWorkspace(ctx, ws)
	if err != nil || len(ids) != 2 {
		t.Errorf("IDsByWorkspace = %v, %v", ids, err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, _ := store.Create(ctx, models.Project{Title: "Old", Description: "keep", Workspace: primitive.NewObjectID()})

	title := "New"
	progress := 40
	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	got, err := store.Update(ctx, p.ID, projectstore.ProjectUpdate{Title: &title, Progress: &progress, DueDate: &due})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Title != "New" || got.Progress != 40 {
		t.Errorf("Title/Progress = %q/%d", got.Title, got.Progress)
	}
	if got.Description != "keep" {
		t.Errorf("nil field changed Description to %q", got.Description)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v", got.DueDate)
	}

	if _, err := store.Update(ctx, primitive.NewObjectID(), projectstore.ProjectUpdate{Title: &title}); !errors.Is(err, projectstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_TasksAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws := primitive.NewObjectID()
	p, _ := store.Create(ctx, models.Project{Title: "P", Workspace: ws})
	task := primitive.NewObjectID()

	if err := store.AddTask(ctx, p.ID, task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	store.AddTask(ctx, p.ID, task)
	got, _ := store.GetByID(ctx, p.ID)
	if len(got.Tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(got.Tasks))
	}
	if err := store.RemoveTask(ctx, p.ID, task); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if len(got.Tasks) != 0 {
		t.Errorf("tasks = %d, want 0", len(got.Tasks))
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	store.Create(ctx, models.Project{Title: "Q", Workspace: ws})
	store.Create(ctx, models.Project{Title: "R", Workspace: ws})
	n, err := store.DeleteByWorkspace(ctx, ws)
	if err != nil || n != 2 {
		t.Errorf("DeleteByWorkspace = %d, %v; want 2", n, err)
	}
}
