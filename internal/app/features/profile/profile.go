package profile

import (
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/system/authz"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
)

// ServeProfile handles GET /users/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load profile")
	defer cancel()

	u, err := h.Accounts.Profile(ctx, uid)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Profile fetched successfully", httpjson.M{"user": u})
}

type profileInput struct {
	Name           string `json:"name" validate:"required,min=3,max=100" label:"Name"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url" label:"Profile picture"`
}

// HandleUpdateProfile handles PUT /users/profile.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in profileInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, uid, in.Name, in.ProfilePicture)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.OK(w, "Profile updated successfully", httpjson.M{"user": u})
}

type passwordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required" label:"Current password"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72" label:"New password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required" label:"Confirm password"`
}

// HandleChangePassword handles PUT /users/change-password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "change password")
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, uid, in.CurrentPassword, in.NewPassword, in.ConfirmPassword); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, uid)
	httpjson.OK(w, "Password updated successfully", nil)
}
