// Package login serves the account endpoints mounted under /auth:
// registration, sign-in and sign-out, email verification and password reset.
package login

import (
	"errors"
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/services/accounts"
	"github.com/dalemusser/flowbase/internal/app/system/apperr"
	"github.com/dalemusser/flowbase/internal/app/system/auditlog"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/httpjson"
	"github.com/dalemusser/flowbase/internal/app/system/inputval"
	"github.com/dalemusser/flowbase/internal/app/system/metrics"
	"github.com/dalemusser/flowbase/internal/app/system/ratelimit"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts   *accounts.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

func NewHandler(svc *accounts.Service, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   svc,
		SessionMgr: sm,
		Limiter:    limiter,
		AuditLog:   audit,
		Metrics:    m,
		Log:        logger,
	}
}

type registerInput struct {
	Name     string `json:"name" validate:"required,min=3" label:"Name"`
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "register")
	defer cancel()

	u, err := h.Accounts.Register(ctx, accounts.RegisterInput{Name: in.Name, Email: in.Email, Password: in.Password})
	if !u.ID.IsZero() {
		h.Metrics.Registrations.Inc()
		h.AuditLog.Registered(ctx, r, u.ID, u.Email)
	}
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Created(w, "Verification mail sent to your email address. Please check and verify your account.", nil)
}

type loginInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// HandleLogin handles POST /auth/login. The token is returned in the body
// and also kept in the session cookie.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "login")
	defer cancel()

	if ok, msg := h.Limiter.Check(r, in.Email); !ok {
		h.Metrics.Logins.WithLabelValues("rate_limited").Inc()
		h.AuditLog.LoginFailedRateLimit(ctx, r, in.Email)
		httpjson.Error(w, r, h.Log, apperr.TooManyRequests(msg))
		return
	}

	sess, err := h.Accounts.Login(ctx, in.Email, in.Password)
	if err != nil {
		h.auditFailure(r, err)
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Limiter.ResetEmail(in.Email)
	h.Metrics.Logins.WithLabelValues("success").Inc()
	h.AuditLog.LoginSuccess(ctx, r, sess.User.ID)
	h.SessionMgr.Remember(w, r, sess.User.ID, sess.Token)

	httpjson.OK(w, "Login successful", httpjson.M{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       sess.User,
	})
}

func (h *Handler) auditFailure(r *http.Request, err error) {
	var f *accounts.LoginFailure
	if !errors.As(err, &f) {
		h.Metrics.Logins.WithLabelValues("error").Inc()
		return
	}
	h.Metrics.Logins.WithLabelValues(f.Reason).Inc()
	ctx := r.Context()
	switch f.Reason {
	case accounts.ReasonUnknownEmail:
		h.AuditLog.LoginFailedUserNotFound(ctx, r, f.Email)
	case accounts.ReasonWrongPassword:
		h.AuditLog.LoginFailedWrongPassword(ctx, r, f.UserID)
	case accounts.ReasonUnverified:
		h.AuditLog.LoginFailedUnverified(ctx, r, f.UserID, f.Resent)
	}
}

// HandleLogout handles POST /auth/logout. Bearer clients simply discard
// their token; browser clients get the session cookie expired.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}
	h.SessionMgr.Clear(w, r)
	httpjson.OK(w, "Logged out successfully", nil)
}

type tokenInput struct {
	Token string `json:"token" validate:"required" label:"Token"`
}

// HandleVerifyEmail handles POST /auth/verify-email.
func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify email")
	defer cancel()

	u, err := h.Accounts.VerifyEmail(ctx, in.Token)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.EmailVerified(ctx, r, u.ID)
	httpjson.OK(w, "Email verified successfully", nil)
}

type resetRequestInput struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
}

// HandleResetRequest handles POST /auth/reset-password-request.
func (h *Handler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	var in resetRequestInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reset request")
	defer cancel()

	u, err := h.Accounts.RequestReset(ctx, in.Email)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)
	httpjson.OK(w, "Password reset email sent. Please check your email.", nil)
}

type resetInput struct {
	Token           string `json:"token" validate:"required" label:"Token"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72" label:"New password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required" label:"Confirm password"`
}

// HandleResetPassword handles POST /auth/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if err := inputval.Bind(r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reset password")
	defer cancel()

	u, err := h.Accounts.ResetPassword(ctx, in.Token, in.NewPassword, in.ConfirmPassword)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.PasswordReset(ctx, r, u.ID)
	httpjson.OK(w, "Password reset successfully", nil)
}
