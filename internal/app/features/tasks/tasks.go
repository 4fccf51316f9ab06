package tasks

import (
	"net/http"
	"time"

	tasksvc "github.com/dalemusser/flowbase/internal/app/services/tasks"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/domain/models"
)

type createInput struct {
	Title       string     `json:"title" validate:"required,min=1,max=200" label:"Title"`
	Description string     `json:"description" validate:"max=5000" label:"Description"`
	Status      string     `json:"status" validate:"omitempty,taskstatus" label:"Status"`
	Priority    string     `json:"priority" validate:"omitempty,priority" label:"Priority"`
	DueDate     *time.Time `json:"dueDate" label:"Due date"`
	Assignees   []string   `json:"assignees" validate:"dive,objectid" label:"Assignees"`
}

// HandleCreate handles POST /tasks/{projectId}/create-task.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, projectID, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	var in createInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create task")
	defer cancel()

	t, err := h.Tasks.Create(ctx, uid, projectID, tasksvc.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Assignees:   parseIDs(in.Assignees),
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Created(w, "Task created successfully", httpjson.M{"task": t})
}

// ServeMine handles GET /tasks/my-tasks.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "my tasks")
	defer cancel()

	mine, err := h.Tasks.Mine(ctx, uid)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Tasks fetched successfully", httpjson.M{"tasks": mine})
}

// ServeTask handles GET /tasks/{taskId}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "task")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task detail")
	defer cancel()

	d, err := h.Tasks.Get(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Task fetched successfully", httpjson.M{"task": d.Task, "project": d.Project})
}

type titleInput struct {
	Title string `json:"title" validate:"required,min=1,max=200" label:"Title"`
}

type descriptionInput struct {
	Description string `json:"description" validate:"max=5000" label:"Description"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,taskstatus" label:"Status"`
}

type priorityInput struct {
	Priority string `json:"priority" validate:"required,priority" label:"Priority"`
}

type assigneesInput struct {
	Assignees []string `json:"assignees" validate:"dive,objectid" label:"Assignees"`
}

// HandleTitle handles PUT /tasks/{taskId}/title.
func (h *Handler) HandleTitle(w http.ResponseWriter, r *http.Request) {
	var in titleInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.UpdateTitle(u.ctx, u.actor, u.id, in.Title)
	})
}

// HandleDescription handles PUT /tasks/{taskId}/description.
func (h *Handler) HandleDescription(w http.ResponseWriter, r *http.Request) {
	var in descriptionInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.UpdateDescription(u.ctx, u.actor, u.id, in.Description)
	})
}

// HandleStatus handles PUT /tasks/{taskId}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.UpdateStatus(u.ctx, u.actor, u.id, in.Status)
	})
}

// HandlePriority handles PUT /tasks/{taskId}/priority.
func (h *Handler) HandlePriority(w http.ResponseWriter, r *http.Request) {
	var in priorityInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.UpdatePriority(u.ctx, u.actor, u.id, in.Priority)
	})
}

// HandleAssignees handles PUT /tasks/{taskId}/assignees.
func (h *Handler) HandleAssignees(w http.ResponseWriter, r *http.Request) {
	var in assigneesInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.UpdateAssignees(u.ctx, u.actor, u.id, parseIDs(in.Assignees))
	})
}

type subtaskInput struct {
	Title string `json:"title" validate:"required,min=1,max=200" label:"Title"`
}

// HandleAddSubtask handles POST /tasks/{taskId}/add-subtask.
func (h *Handler) HandleAddSubtask(w http.ResponseWriter, r *http.Request) {
	var in subtaskInput
	h.respond(w, r, &in, http.StatusCreated, "Subtask added successfully", func(u updater) (models.Task, error) {
		return h.Tasks.AddSubtask(u.ctx, u.actor, u.id, in.Title)
	})
}

type subtaskStateInput struct {
	Completed bool `json:"completed"`
}

// HandleUpdateSubtask handles PUT /tasks/{taskId}/update-subtask/{subTaskId}.
func (h *Handler) HandleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	subID, err := inputval.PathID(r, "subTaskId", "subtask")
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	var in subtaskStateInput
	h.update(w, r, &in, func(u updater) (models.Task, error) {
		return h.Tasks.SetSubtask(u.ctx, u.actor, u.id, subID, in.Completed)
	})
}

// HandleWatch handles POST /tasks/{taskId}/watch.
func (h *Handler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, nil, func(u updater) (models.Task, error) {
		return h.Tasks.ToggleWatch(u.ctx, u.actor, u.id)
	})
}

// HandleArchive handles POST /tasks/{taskId}/archived.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, nil, func(u updater) (models.Task, error) {
		return h.Tasks.ToggleArchive(u.ctx, u.actor, u.id)
	})
}

// HandleDelete handles DELETE /tasks/{taskId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "task")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete task")
	defer cancel()

	if _, err := h.Tasks.Delete(ctx, uid, id); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Task deleted successfully", nil)
}

// ServeActivity handles GET /tasks/{resourceId}/activity.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "resource")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task activity")
	defer cancel()

	logs, err := h.Tasks.Activity(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Activity fetched successfully", httpjson.M{"activity": logs})
}

// ServeComments handles GET /tasks/{taskId}/comments.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "task")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task comments")
	defer cancel()

	comments, err := h.Tasks.Comments(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Comments fetched successfully", httpjson.M{"comments": comments})
}

type commentInput struct {
	Text string `json:"text" validate:"required,max=5000" label:"Comment"`
}

// HandleAddComment handles POST /tasks/{taskId}/comments.
func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "task")
	if !ok {
		return
	}
	var in commentInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add comment")
	defer cancel()

	c, err := h.Tasks.AddComment(ctx, uid, id, in.Text)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Created(w, "Comment added successfully", httpjson.M{"comment": c})
}
