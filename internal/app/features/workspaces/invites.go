package workspaces

import (
	"net/http"

	invitesvc "github.com/dalemusser/flowbase/internal/app/services/invitations"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/domain/models"
)

type inviteInput struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
	Role  string `json:"role" validate:"omitempty,wsrole" label:"Role"`
}

// HandleInvite handles POST /workspaces/{id}/invite-member.
//
// When the record is stored but the email cannot be sent the response is
// 502; the invitation stays pending and can be superseded once expired.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in inviteInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "invite member")
	defer cancel()

	inv, err := h.Invites.Create(ctx, uid, id, invitesvc.CreateInput{Email: in.Email, Role: in.Role})
	if !inv.ID.IsZero() {
		h.Metrics.InvitesSent.Inc()
		h.AuditLog.InviteSent(ctx, r, uid, id, inv.User, inv.Role)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindEmailDeliveryFailed) {
			h.Metrics.InviteEmailFail.Inc()
		}
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Invitation sent successfully", nil)
}

type acceptTokenInput struct {
	Token string `json:"token" validate:"required" label:"Token"`
}

// HandleAcceptToken handles POST /workspaces/accept-invite-token. The
// consumed invitation is removed after the reply is written.
func (h *Handler) HandleAcceptToken(w http.ResponseWriter, r *http.Request) {
	var in acceptTokenInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "accept invitation")
	defer cancel()

	acc, err := h.Invites.AcceptToken(ctx, uid, in.Token)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Metrics.InvitesAccepted.Inc()
	h.AuditLog.InviteAccepted(ctx, r, uid, acc.Workspace.ID, acc.Role)
	httpjson.OK(w, "Invitation accepted successfully", httpjson.M{"workspace": acc.Workspace})
	h.AfterResponse(acc.Cleanup)
}

// HandleAcceptGeneral handles POST /workspaces/{id}/accept-general-invite.
func (h *Handler) HandleAcceptGeneral(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "join workspace")
	defer cancel()

	ws, err := h.Invites.AcceptGeneral(ctx, uid, id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.InviteAccepted(ctx, r, uid, ws.ID, models.RoleMember)
	httpjson.OK(w, "Workspace joined successfully", httpjson.M{"workspace": ws})
}
