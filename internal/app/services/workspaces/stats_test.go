package workspacesvc_test

import (
	"testing"
	"time"

	workspacesvc "github.com/dalemusser/flowbase/internal/app/services/workspaces"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wednesday, 14 Oct 2026, midday UTC.
var statsNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func ptime(t time.Time) *time.Time { return &t }

func TestCompute_Empty(t *testing.T) {
	s := workspacesvc.Compute(nil, nil, statsNow)

	if s.Stats != (workspacesvc.Totals{}) {
		t.Errorf("Stats = %+v, want zero", s.Stats)
	}
	if len(s.TaskTrends) != 7 || s.TaskTrends[0].Name != "Sun" || s.TaskTrends[6].Name != "Sat" {
		t.Errorf("TaskTrends = %+v, want seven days Sun..Sat", s.TaskTrends)
	}
	if len(s.ProjectStatus) != 3 || len(s.TaskPriority) != 3 {
		t.Errorf("distributions = %d/%d slices, want 3/3", len(s.ProjectStatus), len(s.TaskPriority))
	}
	if s.UpcomingTasks == nil || s.RecentProjects == nil || s.Productivity == nil {
		t.Error("list fields should be empty, not nil")
	}
}

func TestCompute_Counts(t *testing.T) {
	p1 := models.Project{ID: primitive.NewObjectID(), Title: "Alpha", Status: models.ProjectInProgress, CreatedAt: statsNow.Add(-48 * time.Hour)}
	p2 := models.Project{ID: primitive.NewObjectID(), Title: "Beta", Status: models.ProjectCompleted, CreatedAt: statsNow.Add(-24 * time.Hour)}
	p3 := models.Project{ID: primitive.NewObjectID(), Title: "Gamma", Status: models.ProjectOnHold, CreatedAt: statsNow}

	old := statsNow.AddDate(0, 0, -30)
	tasks := []models.Task{
		{Project: p1.ID, Status: models.TaskDone, Priority: models.PriorityHigh, UpdatedAt: old},
		{Project: p1.ID, Status: models.TaskDone, Priority: models.PriorityHigh, UpdatedAt: old, IsArchived: true},
		{Project: p1.ID, Status: models.TaskToDo, Priority: models.PriorityLow, UpdatedAt: old},
		{Project: p2.ID, Status: models.TaskInProgress, Priority: models.PriorityMedium, UpdatedAt: old},
		{Project: p2.ID, Status: "Blocked", Priority: "Urgent", UpdatedAt: old},
	}

	s := workspacesvc.Compute([]models.Project{p1, p2, p3}, tasks, statsNow)

	want := workspacesvc.Totals{
		TotalProjects:          3,
		TotalTasks:             5,
		TotalProjectInProgress: 1,
		TotalTaskCompleted:     2,
		TotalTaskToDo:          1,
		TotalTaskInProgress:    1,
	}
	if s.Stats != want {
		t.Errorf("Stats = %+v, want %+v", s.Stats, want)
	}

	gotStatus := map[string]int{}
	for _, sl := range s.ProjectStatus {
		gotStatus[sl.Name] = sl.Value
	}
	if gotStatus[models.ProjectCompleted] != 1 || gotStatus[models.ProjectInProgress] != 1 || gotStatus[models.ProjectPlanning] != 0 {
		t.Errorf("ProjectStatus = %+v", s.ProjectStatus)
	}

	gotPriority := map[string]int{}
	for _, sl := range s.TaskPriority {
		gotPriority[sl.Name] = sl.Value
	}
	if gotPriority[models.PriorityHigh] != 2 || gotPriority[models.PriorityMedium] != 1 || gotPriority[models.PriorityLow] != 1 {
		t.Errorf("TaskPriority = %+v", s.TaskPriority)
	}

	if len(s.Productivity) != 3 {
		t.Fatalf("Productivity has %d entries, want 3", len(s.Productivity))
	}
	if got := s.Productivity[0]; got.Name != "Alpha" || got.Completed != 1 || got.Total != 3 {
		t.Errorf("Alpha productivity = %+v, want 1/3", got)
	}
	if got := s.Productivity[2]; got.Total != 0 {
		t.Errorf("Gamma productivity = %+v, want empty", got)
	}

	if len(s.RecentProjects) != 3 || s.RecentProjects[0].Title != "Gamma" {
		t.Errorf("RecentProjects not newest first: %+v", s.RecentProjects)
	}
}

func TestCompute_Trends(t *testing.T) {
	tasks := []models.Task{
		// today, Wednesday
		{Status: models.TaskDone, UpdatedAt: statsNow},
		// yesterday, Tuesday
		{Status: models.TaskInProgress, UpdatedAt: statsNow.AddDate(0, 0, -1)},
		// six days ago, Thursday of last week
		{Status: models.TaskToDo, UpdatedAt: statsNow.AddDate(0, 0, -6)},
		// seven days ago is outside the window
		{Status: models.TaskDone, UpdatedAt: statsNow.AddDate(0, 0, -7)},
	}

	s := workspacesvc.Compute(nil, tasks, statsNow)

	day := func(name string) workspacesvc.TrendDay {
		for _, d := range s.TaskTrends {
			if d.Name == name {
				return d
			}
		}
		t.Fatalf("no trend day %q", name)
		return workspacesvc.TrendDay{}
	}
	if got := day("Wed"); got.Completed != 1 {
		t.Errorf("Wed = %+v, want 1 completed", got)
	}
	if got := day("Tue"); got.InProgress != 1 {
		t.Errorf("Tue = %+v, want 1 in progress", got)
	}
	if got := day("Thu"); got.ToDo != 1 || got.Completed != 0 {
		t.Errorf("Thu = %+v, want only 1 to do", got)
	}
}

func TestCompute_UpcomingAndRecentLimit(t *testing.T) {
	tasks := []models.Task{
		{Title: "later", DueDate: ptime(statsNow.Add(5 * 24 * time.Hour))},
		{Title: "soon", DueDate: ptime(statsNow.Add(2 * time.Hour))},
		{Title: "past", DueDate: ptime(statsNow.Add(-time.Hour))},
		{Title: "far", DueDate: ptime(statsNow.Add(8 * 24 * time.Hour))},
		{Title: "none"},
	}
	var projects []models.Project
	for i := 0; i < 7; i++ {
		projects = append(projects, models.Project{ID: primitive.NewObjectID(), CreatedAt: statsNow.Add(time.Duration(i) * time.Hour)})
	}

	s := workspacesvc.Compute(projects, tasks, statsNow)

	if len(s.UpcomingTasks) != 2 || s.UpcomingTasks[0].Title != "soon" || s.UpcomingTasks[1].Title != "later" {
		t.Errorf("UpcomingTasks = %+v, want [soon later]", s.UpcomingTasks)
	}
	if len(s.RecentProjects) != workspacesvc.RecentProjectLimit {
		t.Errorf("RecentProjects has %d entries, want %d", len(s.RecentProjects), workspacesvc.RecentProjectLimit)
	}
}
