package workspacesvc

import (
	"sort"
	"time"

	"github.com/dalemusser/flowbase/internal/domain/models"
)

// UpcomingWindow is how far ahead a due date counts as upcoming.
const UpcomingWindow = 7 * 24 * time.Hour

// RecentProjectLimit caps the recent projects list.
const RecentProjectLimit = 5

// Totals are the headline counters of the dashboard.
type Totals struct {
	TotalProjects          int `json:"total_projects"`
	TotalTasks             int `json:"total_tasks"`
	TotalProjectInProgress int `json:"total_project_in_progress"`
	TotalTaskCompleted     int `json:"total_task_completed"`
	TotalTaskToDo          int `json:"total_task_to_do"`
	TotalTaskInProgress    int `json:"total_task_in_progress"`
}

// TrendDay counts tasks last touched on one weekday of the past week.
type TrendDay struct {
	Name       string `json:"name"`
	Completed  int    `json:"completed"`
	InProgress int    `json:"in_progress"`
	ToDo       int    `json:"to_do"`
}

// Slice is one segment of a distribution chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// Productivity is the completed/total ratio of one project.
type Productivity struct {
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Stats is the aggregate view of a workspace.
type Stats struct {
	Stats          Totals           `json:"stats"`
	TaskTrends     []TrendDay       `json:"task_trends_data"`
	ProjectStatus  []Slice          `json:"project_status_data"`
	TaskPriority   []Slice          `json:"task_priority_data"`
	Productivity   []Productivity   `json:"workspace_productivity_data"`
	UpcomingTasks  []models.Task    `json:"upcoming_tasks"`
	RecentProjects []models.Project `json:"recent_projects"`
}

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Compute aggregates projects and their tasks as of now.
//
// Status and priority values outside the known sets are left out of the
// corresponding buckets. Trend days are calendar days in now's location.
func Compute(projects []models.Project, tasks []models.Task, now time.Time) Stats {
	s := Stats{
		TaskTrends: make([]TrendDay, 7),
		ProjectStatus: []Slice{
			{Name: models.ProjectCompleted, Color: "#10b981"},
			{Name: models.ProjectInProgress, Color: "#3b82f6"},
			{Name: models.ProjectPlanning, Color: "#f59e0b"},
		},
		TaskPriority: []Slice{
			{Name: models.PriorityHigh, Color: "#ef4444"},
			{Name: models.PriorityMedium, Color: "#f59e0b"},
			{Name: models.PriorityLow, Color: "#6b7280"},
		},
		Productivity:   make([]Productivity, 0, len(projects)),
		UpcomingTasks:  []models.Task{},
		RecentProjects: []models.Project{},
	}
	for i, name := range weekdayNames {
		s.TaskTrends[i].Name = name
	}

	s.Stats.TotalProjects = len(projects)
	s.Stats.TotalTasks = len(tasks)

	for _, p := range projects {
		switch p.Status {
		case models.ProjectCompleted:
			s.ProjectStatus[0].Value++
		case models.ProjectInProgress:
			s.ProjectStatus[1].Value++
			s.Stats.TotalProjectInProgress++
		case models.ProjectPlanning:
			s.ProjectStatus[2].Value++
		}
	}

	loc := now.Location()
	today := startOfDay(now.In(loc))
	weekStart := today.AddDate(0, 0, -6)
	horizon := now.Add(UpcomingWindow)

	perProject := make(map[string]*Productivity, len(projects))
	for _, p := range projects {
		s.Productivity = append(s.Productivity, Productivity{Name: p.Title})
	}
	for i := range projects {
		perProject[projects[i].ID.Hex()] = &s.Productivity[i]
	}

	for _, t := range tasks {
		switch t.Status {
		case models.TaskDone:
			s.Stats.TotalTaskCompleted++
		case models.TaskToDo:
			s.Stats.TotalTaskToDo++
		case models.TaskInProgress:
			s.Stats.TotalTaskInProgress++
		}

		switch t.Priority {
		case models.PriorityHigh:
			s.TaskPriority[0].Value++
		case models.PriorityMedium:
			s.TaskPriority[1].Value++
		case models.PriorityLow:
			s.TaskPriority[2].Value++
		}

		if day := startOfDay(t.UpdatedAt.In(loc)); !day.Before(weekStart) && !day.After(today) {
			bucket := &s.TaskTrends[day.Weekday()]
			switch t.Status {
			case models.TaskDone:
				bucket.Completed++
			case models.TaskInProgress:
				bucket.InProgress++
			case models.TaskToDo:
				bucket.ToDo++
			}
		}

		if t.DueDate != nil && t.DueDate.After(now) && !t.DueDate.After(horizon) {
			s.UpcomingTasks = append(s.UpcomingTasks, t)
		}

		if pr, ok := perProject[t.Project.Hex()]; ok {
			pr.Total++
			if t.Status == models.TaskDone && !t.IsArchived {
				pr.Completed++
			}
		}
	}

	sort.SliceStable(s.UpcomingTasks, func(i, j int) bool {
		return s.UpcomingTasks[i].DueDate.Before(*s.UpcomingTasks[j].DueDate)
	})

	recent := append([]models.Project(nil), projects...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentProjectLimit {
		recent = recent[:RecentProjectLimit]
	}
	s.RecentProjects = append(s.RecentProjects, recent...)

	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
