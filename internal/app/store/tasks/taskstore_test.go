package taskstore_test

import (
	"errors"
	"testing"

	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestStore_CreateDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, err := store.Create(ctx, models.Task{Title: "Write docs", Project: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != models.TaskToDo || task.Priority != models.PriorityMedium {
		t.Errorf("defaults = %q/%q", task.Status, task.Priority)
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Assignees == nil || got.Watchers == nil || got.Subtasks == nil {
		t.Error("expected empty, non-nil slices")
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Set(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, _ := store.Create(ctx, models.Task{Title: "T", Project: primitive.NewObjectID()})

	done, err := store.Set(ctx, task.ID, taskstore.TaskFields{Status: strp(models.TaskDone), Title: strp("Renamed")})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if done.Title != "Renamed" || done.Status != models.TaskDone {
		t.Errorf("Title/Status = %q/%q", done.Title, done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("expected CompletedAt when marked done")
	}

	reopened, err := store.Set(ctx, task.ID, taskstore.TaskFields{Status: strp(models.TaskInProgress)})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected CompletedAt cleared when reopened")
	}

	user := primitive.NewObjectID()
	got, err := store.Set(ctx, task.ID, taskstore.TaskFields{
		Assignees: []primitive.ObjectID{user},
		Watchers:  []primitive.ObjectID{user},
		Archived:  boolp(true),
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(got.Assignees) != 1 || len(got.Watchers) != 1 || !got.IsArchived {
		t.Errorf("unexpected task: %+v", got)
	}

	if _, err := store.Set(ctx, primitive.NewObjectID(), taskstore.TaskFields{Title: strp("x")}); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Subtasks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, _ := store.Create(ctx, models.Task{Title: "T", Project: primitive.NewObjectID()})
	st := models.Subtask{ID: primitive.NewObjectID(), Title: "step"}

	got, err := store.AddSubtask(ctx, task.ID, st)
	if err != nil || len(got.Subtasks) != 1 {
		t.Fatalf("AddSubtask = %v, %v", got.Subtasks, err)
	}

	got, err = store.SetSubtaskCompleted(ctx, task.ID, st.ID, true)
	if err != nil {
		t.Fatalf("SetSubtaskCompleted: %v", err)
	}
	if !got.Subtasks[0].Completed {
		t.Error("subtask not completed")
	}

	if _, err := store.SetSubtaskCompleted(ctx, task.ID, primitive.NewObjectID(), true); !errors.Is(err, taskstore.ErrSubtaskNotFound) {
		t.Errorf("expected ErrSubtaskNotFound, got %v", err)
	}
	if _, err := store.AddSubtask(ctx, primitive.NewObjectID(), st); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Lists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	user := primitive.NewObjectID()

	a, _ := store.Create(ctx, models.Task{Title: "a", Project: p1, Assignees: []primitive.ObjectID{user}})
	b, _ := store.Create(ctx, models.Task{Title: "b", Project: p1, Assignees: []primitive.ObjectID{user}})
	store.Create(ctx, models.Task{Title: "c", Project: p2})
	store.Set(ctx, b.ID, taskstore.TaskFields{Archived: boolp(true)})

	tests := []struct {
		name string
		list func() ([]models.Task, error)
		want int
	}{
		{"by project", func() ([]models.Task, error) { return store.ListByProjects(ctx, []primitive.ObjectID{p1}) }, 2},
		{"both projects", func() ([]models.Task, error) { return store.ListByProjects(ctx, []primitive.ObjectID{p1, p2}) }, 3},
		{"archived", func() ([]models.Task, error) { return store.ListArchived(ctx, []primitive.ObjectID{p1, p2}) }, 1},
		{"assigned excludes archived", func() ([]models.Task, error) { return store.ListAssignedTo(ctx, user) }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.list()
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d tasks, want %d", len(got), tt.want)
			}
		})
	}

	mine, _ := store.ListAssignedTo(ctx, user)
	if len(mine) == 1 && mine[0].ID != a.ID {
		t.Errorf("assigned task = %s, want %s", mine[0].ID.Hex(), a.ID.Hex())
	}

	ids, err := store.IDsByProjects(ctx, []primitive.ObjectID{p1})
	if err != nil || len(ids) != 2 {
		t.Errorf("IDsByProjects = %v, %v", ids, err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := primitive.NewObjectID()
	one, _ := store.Create(ctx, models.Task{Title: "one", Project: p})
	store.Create(ctx, models.Task{Title: "two", Project: p})
	store.Create(ctx, models.Task{Title: "three", Project: p})

	if err := store.Delete(ctx, one.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := store.DeleteByProjects(ctx, []primitive.ObjectID{p})
	if err != nil || n != 2 {
		t.Errorf("DeleteByProjects = %d, %v; want 2", n, err)
	}
	n, err = store.DeleteByProjects(ctx, nil)
	if err != nil || n != 0 {
		t.Errorf("DeleteByProjects(nil) = %d, %v", n, err)
	}
}
