// Package projects serves the project endpoints mounted under /projects.
package projects

import (
	"net/http"
	"time"

	projectsvc "github.com/dalemusser/flowbase/internal/app/services/projects"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Projects *projectsvc.Service
	Log      *zap.Logger
}

func NewHandler(svc *projectsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Projects: svc, Log: logger}
}

// Routes mounts the project routes. The {id} segment is a workspace id for
// create-project and a project id everywhere else.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/{id}/create-project", h.HandleCreate)
	r.Get("/{id}", h.ServeProject)
	r.Get("/{id}/tasks", h.ServeTasks)
	r.Put("/{id}", h.HandleUpdate)
	r.Post("/{id}/archive", h.HandleArchive)
	r.Delete("/{id}", h.HandleDelete)

	return r
}

type memberInput struct {
	User string `json:"user" validate:"required,objectid" label:"Member"`
	Role string `json:"role" validate:"omitempty,oneof=manager contributor viewer" label:"Member role"`
}

type createInput struct {
	Title       string        `json:"title" validate:"required,min=3,max=200" label:"Title"`
	Description string        `json:"description" validate:"max=5000" label:"Description"`
	Status      string        `json:"status" validate:"omitempty,projectstatus" label:"Status"`
	StartDate   *time.Time    `json:"startDate" label:"Start date"`
	DueDate     *time.Time    `json:"dueDate" label:"Due date"`
	Tags        []string      `json:"tags" validate:"max=20,dive,max=40" label:"Tags"`
	Members     []memberInput `json:"members" validate:"dive" label:"Members"`
}

// HandleCreate handles POST /projects/{workspaceId}/create-project.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, wsID, ok := h.target(w, r, "workspace")
	if !ok {
		return
	}
	var in createInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		httpjson.Error(w, r, h.Log, apperr.BadRequest("Due date must not be before the start date"))
		return
	}
	members := make([]models.ProjectMember, 0, len(in.Members))
	for _, m := range in.Members {
		id, _ := primitive.ObjectIDFromHex(m.User)
		members = append(members, models.ProjectMember{User: id, Role: m.Role})
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create project")
	defer cancel()

	p, err := h.Projects.Create(ctx, uid, wsID, projectsvc.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Members:     members,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Created(w, "Project created successfully", httpjson.M{"project": p})
}

// ServeProject handles GET /projects/{projectId}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project detail")
	defer cancel()

	p, err := h.Projects.Get(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Project fetched successfully", httpjson.M{"project": p})
}

// ServeTasks handles GET /projects/{projectId}/tasks.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "project tasks")
	defer cancel()

	pt, err := h.Projects.Tasks(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Project tasks fetched successfully", httpjson.M{"project": pt.Project, "tasks": pt.TaskDocs})
}

type updateInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=200" label:"Title"`
	Description *string    `json:"description" validate:"omitempty,max=5000" label:"Description"`
	Status      *string    `json:"status" validate:"omitempty,projectstatus" label:"Status"`
	StartDate   *time.Time `json:"startDate" label:"Start date"`
	DueDate     *time.Time `json:"dueDate" label:"Due date"`
	Progress    *int       `json:"progress" validate:"omitempty,min=0,max=100" label:"Progress"`
	Tags        []string   `json:"tags" validate:"max=20,dive,max=40" label:"Tags"`
}

// HandleUpdate handles PUT /projects/{projectId}. Absent fields are left unchanged.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	var in updateInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update project")
	defer cancel()

	p, err := h.Projects.Update(ctx, uid, id, projectsvc.UpdateInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Progress:    in.Progress,
		Tags:        in.Tags,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Project updated successfully", httpjson.M{"project": p})
}

// HandleArchive handles POST /projects/{projectId}/archive.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "archive project")
	defer cancel()

	p, err := h.Projects.ToggleArchive(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	msg := "Project unarchived successfully"
	if p.IsArchived {
		msg = "Project archived successfully"
	}
	httpjson.OK(w, msg, httpjson.M{"project": p})
}

// HandleDelete handles DELETE /projects/{projectId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete project")
	defer cancel()

	res, err := h.Projects.Delete(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Project deleted successfully", httpjson.M{
		"deleted_tasks":    res.Tasks,
		"deleted_comments": res.Comments,
	})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request, label string) (primitive.ObjectID, primitive.ObjectID, bool) {
	uid, _ := authz.UserID(r)
	id, err := inputval.PathID(r, "id", label)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return uid, id, false
	}
	return uid, id, true
}
