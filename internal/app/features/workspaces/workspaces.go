package workspaces

import (
	"net/http"

	workspacesvc "github.com/dalemusser/flowbase/internal/app/services/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type workspaceInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100" label:"Name"`
	Description string `json:"description" validate:"max=500" label:"Description"`
	Color       string `json:"color" validate:"omitempty,hexcolor6" label:"Color"`
}

// HandleCreate handles POST /workspaces.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in workspaceInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create workspace")
	defer cancel()

	ws, err := h.Workspaces.Create(ctx, uid, workspacesvc.CreateInput{Name: in.Name, Description: in.Description, Color: in.Color})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Created(w, "Workspace created successfully", httpjson.M{"workspace": ws})
}

// ServeList handles GET /workspaces.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list workspaces")
	defer cancel()

	list, err := h.Workspaces.List(ctx, uid)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Workspaces fetched successfully", httpjson.M{"workspaces": list})
}

// ServeDetail handles GET /workspaces/{id}.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "workspace detail")
	defer cancel()

	detail, err := h.Workspaces.Get(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Workspace fetched successfully", httpjson.M{"workspace": detail})
}

// ServeProjects handles GET /workspaces/{id}/projects.
func (h *Handler) ServeProjects(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "workspace projects")
	defer cancel()

	view, err := h.Workspaces.Projects(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Workspace projects fetched successfully", httpjson.M{
		"workspace": view.Workspace,
		"projects":  view.Projects,
	})
}

// ServeStats handles GET /workspaces/{id}/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "workspace stats")
	defer cancel()

	st, err := h.Workspaces.Stats(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Workspace stats fetched successfully", httpjson.M{
		"stats":                       st.Stats,
		"task_trends_data":            st.TaskTrends,
		"project_status_data":         st.ProjectStatus,
		"task_priority_data":          st.TaskPriority,
		"workspace_productivity_data": st.Productivity,
		"upcoming_tasks":              st.UpcomingTasks,
		"recent_projects":             st.RecentProjects,
	})
}

// ServeArchived handles GET /workspaces/{id}/archived-items.
func (h *Handler) ServeArchived(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "archived items")
	defer cancel()

	tasks, err := h.Workspaces.Archived(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Archived items fetched successfully", httpjson.M{"archived_tasks": tasks})
}

// HandleUpdate handles POST /workspaces/{id}/update.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in workspaceInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update workspace")
	defer cancel()

	ws, err := h.Workspaces.Update(ctx, uid, id, workspacesvc.UpdateInput{Name: in.Name, Description: in.Description, Color: in.Color})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Workspace updated successfully", httpjson.M{"workspace": ws})
}

type transferInput struct {
	NewOwner string `json:"newOwner" validate:"required,emailaddr" label:"New owner"`
}

// HandleTransfer handles POST /workspaces/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in transferInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "transfer workspace")
	defer cancel()

	ws, retries, err := h.Workspaces.Transfer(ctx, uid, id, in.NewOwner)
	h.Metrics.TransferRetries.Add(float64(retries))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Metrics.Transfers.Inc()
	h.AuditLog.OwnershipTransferred(ctx, r, uid, id, ws.Owner)
	httpjson.OK(w, "Workspace transferred successfully", httpjson.M{"workspace": ws})
}

// HandleDelete handles DELETE /workspaces/{id}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete workspace")
	defer cancel()

	res, err := h.Workspaces.Delete(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.WorkspaceDeleted(ctx, r, uid, id, res.Workspace.Name)
	h.Log.Info("workspace deleted",
		zap.String("workspace_id", id.Hex()),
		zap.Int64("projects", res.Projects),
		zap.Int64("tasks", res.Tasks),
		zap.Int64("comments", res.Comments),
		zap.Int64("invitations", res.Invitations))
	httpjson.OK(w, "Workspace deleted successfully", nil)
}

// target returns the caller and the {id} path parameter, writing the
// error response itself when the id is malformed.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, primitive.ObjectID, bool) {
	uid, _ := authz.UserID(r)
	id, err := inputval.PathID(r, "id", "workspace")
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return uid, id, false
	}
	return uid, id, true
}
