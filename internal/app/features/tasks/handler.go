// Package tasks serves the task endpoints mounted under /tasks.
package tasks

import (
	"net/http"

	tasksvc "github.com/dalemusser/flowbase/internal/app/services/tasks"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Tasks *tasksvc.Service
	Log   *zap.Logger
}

func NewHandler(svc *tasksvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Tasks: svc, Log: logger}
}

// Routes mounts the task routes. {id} is a project id for create-task, a
// task or project id for activity, and a task id everywhere else.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/{id}/create-task", h.HandleCreate)
	r.Get("/my-tasks", h.ServeMine)
	r.Get("/{id}", h.ServeTask)

	r.Put("/{id}/title", h.HandleTitle)
	r.Put("/{id}/description", h.HandleDescription)
	r.Put("/{id}/status", h.HandleStatus)
	r.Put("/{id}/priority", h.HandlePriority)
	r.Put("/{id}/assignees", h.HandleAssignees)

	r.Post("/{id}/add-subtask", h.HandleAddSubtask)
	r.Put("/{id}/update-subtask/{subTaskId}", h.HandleUpdateSubtask)

	r.Get("/{id}/activity", h.ServeActivity)
	r.Get("/{id}/comments", h.ServeComments)
	r.Post("/{id}/comments", h.HandleAddComment)

	r.Post("/{id}/watch", h.HandleWatch)
	r.Post("/{id}/archived", h.HandleArchive)
	r.Delete("/{id}", h.HandleDelete)

	return r
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

func parseIDs(raw []string) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
