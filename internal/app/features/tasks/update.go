package tasks

import (
	"context"
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// updater carries what a single-task mutation needs.
type updater struct {
	ctx   context.Context
	actor primitive.ObjectID
	id    primitive.ObjectID
}

// update binds in (when non-nil), runs fn on the {id} task and writes
// {message, task}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, in any, fn func(updater) (models.Task, error)) {
	h.respond(w, r, in, http.StatusOK, "Task updated successfully", fn)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, in any, status int, msg string, fn func(updater) (models.Task, error)) {
	uid, id, ok := h.target(w, r, "task")
	if !ok {
		return
	}
	if in != nil {
		if err := inputval.Bind(r, in); err != nil {
			httpjson.Error(w, r, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update task")
	defer cancel()

	t, err := fn(updater{ctx: ctx, actor: uid, id: id})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Status(w, status, msg, httpjson.M{"task": t})
}
