package tasksvc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	tasksvc "github.com/dalemusser/flowbase/internal/app/services/tasks"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/dalemusser/flowbase/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type harness struct {
	ctx                             context.Context
	db                              *memstore.DB
	svc                             *tasksvc.Service
	owner, member, viewer, stranger primitive.ObjectID
	project                         models.Project
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:      context.Background(),
		db:       memstore.New(),
		owner:    primitive.NewObjectID(),
		member:   primitive.NewObjectID(),
		viewer:   primitive.NewObjectID(),
		stranger: primitive.NewObjectID(),
	}
	h.svc = tasksvc.New(tasksvc.Deps{
		Workspaces: h.db.Workspaces,
		Projects:   h.db.Projects,
		Tasks:      h.db.Tasks,
		Comments:   h.db.Comments,
		Activity:   h.db.Activity,
		Tx:         memstore.Tx{},
		Now:        func() time.Time { return now },
	})
	ws, _ := h.db.Workspaces.Create(h.ctx, models.NewWorkspace("W", "", "", h.owner, now))
	_, _ = h.db.Workspaces.AddMember(h.ctx, ws.ID, models.Member{User: h.member, Role: models.RoleMember})
	_, _ = h.db.Workspaces.AddMember(h.ctx, ws.ID, models.Member{User: h.viewer, Role: models.RoleViewer})
	h.project, _ = h.db.Projects.Create(h.ctx, models.Project{Title: "P", Workspace: ws.ID})
	return h
}

func (h *harness) task(t *testing.T) models.Task {
	t.Helper()
	task, err := h.svc.Create(h.ctx, h.member, h.project.ID, tasksvc.CreateInput{Title: "Write docs", Assignees: []primitive.ObjectID{h.member}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

func (h *harness) lastActivity(t *testing.T) models.ActivityLog {
	t.Helper()
	all := h.db.Activity.All()
	if len(all) == 0 {
		t.Fatal("no activity recorded")
	}
	return all[len(all)-1]
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %v", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("kind = %v (%v), want %v", got, err, want)
	}
}

func TestCreate(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)

	if task.Status != models.TaskToDo || task.Priority != models.PriorityMedium || task.CreatedBy != h.member {
		t.Errorf("task = %+v", task)
	}
	p, _ := h.db.Projects.GetByID(h.ctx, h.project.ID)
	if len(p.Tasks) != 1 || p.Tasks[0] != task.ID {
		t.Errorf("project tasks = %v", p.Tasks)
	}
	if a := h.lastActivity(t); a.Action != models.ActionTaskCreated || a.ResourceType != models.ResourceTask {
		t.Errorf("activity = %+v", a)
	}

	tests := []struct {
		name  string
		actor primitive.ObjectID
		in    tasksvc.CreateInput
		want  apperr.Kind
	}{
		{"viewer", h.viewer, tasksvc.CreateInput{Title: "x"}, apperr.KindForbidden},
		{"stranger", h.stranger, tasksvc.CreateInput{Title: "x"}, apperr.KindForbidden},
		{"blank title", h.member, tasksvc.CreateInput{Title: "  "}, apperr.KindBadRequest},
		{"bad status", h.member, tasksvc.CreateInput{Title: "x", Status: "Blocked"}, apperr.KindBadRequest},
		{"bad priority", h.member, tasksvc.CreateInput{Title: "x", Priority: "Urgent"}, apperr.KindBadRequest},
		{"outside assignee", h.member, tasksvc.CreateInput{Title: "x", Assignees: []primitive.ObjectID{h.stranger}}, apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Create(h.ctx, tt.actor, h.project.ID, tt.in)
			assertKind(t, err, tt.want)
		})
	}

	_, err := h.svc.Create(h.ctx, h.member, primitive.NewObjectID(), tasksvc.CreateInput{Title: "x"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestFieldUpdatesRecordChanges(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)

	got, err := h.svc.UpdateTitle(h.ctx, h.member, task.ID, "Write better docs")
	if err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if got.Title != "Write better docs" {
		t.Errorf("Title = %q", got.Title)
	}
	if c := h.lastActivity(t).Details.Change; c == nil || c.From != "Write docs" || c.To != "Write better docs" {
		t.Errorf("change = %+v", c)
	}

	got, err = h.svc.UpdateStatus(h.ctx, h.member, task.ID, models.TaskDone)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if a := h.lastActivity(t); a.Action != models.ActionTaskCompleted {
		t.Errorf("action = %q, want task_completed", a.Action)
	}

	if _, err := h.svc.UpdatePriority(h.ctx, h.member, task.ID, models.PriorityHigh); err != nil {
		t.Fatalf("UpdatePriority: %v", err)
	}
	if _, err := h.svc.UpdateDescription(h.ctx, h.member, task.ID, strings.Repeat("d", 80)); err != nil {
		t.Fatalf("UpdateDescription: %v", err)
	}
	if c := h.lastActivity(t).Details.Change; c == nil || !strings.HasSuffix(c.To, "...") {
		t.Errorf("description change not shortened: %+v", c)
	}

	_, err = h.svc.UpdateStatus(h.ctx, h.member, task.ID, "Later")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = h.svc.UpdateTitle(h.ctx, h.viewer, task.ID, "nope")
	assertKind(t, err, apperr.KindForbidden)
	_, err = h.svc.UpdateTitle(h.ctx, h.member, primitive.NewObjectID(), "nope")
	assertKind(t, err, apperr.KindNotFound)
}

func TestAssignees(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)

	got, err := h.svc.UpdateAssignees(h.ctx, h.owner, task.ID, []primitive.ObjectID{h.owner, h.viewer, h.owner})
	if err != nil {
		t.Fatalf("UpdateAssignees: %v", err)
	}
	if len(got.Assignees) != 2 {
		t.Errorf("Assignees = %v, want duplicates dropped", got.Assignees)
	}
	a := h.lastActivity(t).Details.Assignees
	if a == nil || len(a.Before) != 1 || len(a.After) != 2 {
		t.Errorf("assignees detail = %+v", a)
	}

	mine, err := h.svc.Mine(h.ctx, h.viewer)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ProjectTitle != "P" {
		t.Errorf("Mine = %+v", mine)
	}
}

func TestSubtasks(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)

	got, err := h.svc.AddSubtask(h.ctx, h.member, task.ID, "outline")
	if err != nil {
		t.Fatalf("AddSubtask: %v", err)
	}
	if len(got.Subtasks) != 1 {
		t.Fatalf("Subtasks = %+v", got.Subtasks)
	}
	sub := got.Subtasks[0]

	got, err = h.svc.SetSubtask(h.ctx, h.member, task.ID, sub.ID, true)
	if err != nil {
		t.Fatalf("SetSubtask: %v", err)
	}
	if !got.Subtasks[0].Completed {
		t.Error("subtask not completed")
	}
	if d := h.lastActivity(t).Details.Subtask; d == nil || !d.Completed || d.Title != "outline" {
		t.Errorf("subtask detail = %+v", d)
	}

	_, err = h.svc.SetSubtask(h.ctx, h.member, task.ID, primitive.NewObjectID(), true)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCommentsWatchArchive(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)

	c, err := h.svc.AddComment(h.ctx, h.owner, task.ID, "<b>looks</b> good<script>x</script>")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.Text != "<b>looks</b> good" {
		t.Errorf("Text = %q", c.Text)
	}
	_, err = h.svc.AddComment(h.ctx, h.owner, task.ID, "<script>x</script>")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = h.svc.AddComment(h.ctx, h.viewer, task.ID, "hi")
	assertKind(t, err, apperr.KindForbidden)

	list, err := h.svc.Comments(h.ctx, h.viewer, task.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("Comments = %v, %v", list, err)
	}

	got, err := h.svc.ToggleWatch(h.ctx, h.viewer, task.ID)
	if err != nil {
		t.Fatalf("ToggleWatch: %v", err)
	}
	if !got.IsWatchedBy(h.viewer) {
		t.Error("viewer not watching")
	}
	got, _ = h.svc.ToggleWatch(h.ctx, h.viewer, task.ID)
	if got.IsWatchedBy(h.viewer) {
		t.Error("viewer still watching")
	}
	if w := h.lastActivity(t).Details.Watch; w == nil || w.Watching {
		t.Errorf("watch detail = %+v", w)
	}

	got, err = h.svc.ToggleArchive(h.ctx, h.member, task.ID)
	if err != nil || !got.IsArchived {
		t.Fatalf("ToggleArchive = %+v, %v", got, err)
	}

	acts, err := h.svc.Activity(h.ctx, h.viewer, task.ID)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if len(acts) == 0 || acts[0].Action != models.ActionTaskUpdated {
		t.Errorf("Activity newest = %+v", acts)
	}
	_, err = h.svc.Activity(h.ctx, h.stranger, task.ID)
	assertKind(t, err, apperr.KindForbidden)
	if _, err := h.svc.Activity(h.ctx, h.viewer, h.project.ID); err != nil {
		t.Errorf("Activity for project: %v", err)
	}
	_, err = h.svc.Activity(h.ctx, h.viewer, primitive.NewObjectID())
	assertKind(t, err, apperr.KindNotFound)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	task := h.task(t)
	_, _ = h.svc.AddComment(h.ctx, h.member, task.ID, "bye")

	_, err := h.svc.Delete(h.ctx, h.viewer, task.ID)
	assertKind(t, err, apperr.KindForbidden)

	if _, err := h.svc.Delete(h.ctx, h.member, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.db.Tasks.GetByID(h.ctx, task.ID); err == nil {
		t.Error("task still present")
	}
	if list, _ := h.db.Comments.ListByTask(h.ctx, task.ID); len(list) != 0 {
		t.Errorf("comments kept: %v", list)
	}
	p, _ := h.db.Projects.GetByID(h.ctx, h.project.ID)
	if len(p.Tasks) != 0 {
		t.Errorf("project still lists %v", p.Tasks)
	}
	_, err = h.svc.Get(h.ctx, h.member, task.ID)
	assertKind(t, err, apperr.KindNotFound)
}
