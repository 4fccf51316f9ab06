// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/flowbase/internal/app/store/audit"
	"github.com/dalemusser/flowbase/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB and zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config picks a destination per event category.
type Config struct {
	Auth      string
	Workspace string
}

// Logger writes audit events to the audit store and the structured log.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := All
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryWorkspace:
		setting = l.config.Workspace
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to write audit event",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventRegistered, &userID, true)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventLoginSuccess, &userID, true))
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedUserNotFound, nil, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := authEvent(r, audit.EventLoginFailedWrongPassword, &userID, false)
	e.FailureReason = "wrong password"
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUnverified(ctx context.Context, r *http.Request, userID primitive.ObjectID, resent bool) {
	e := authEvent(r, audit.EventLoginFailedUnverified, &userID, false)
	e.FailureReason = "email not verified"
	if resent {
		e.Details = map[string]string{"verification_resent": "true"}
	}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventLogout, &userID, true))
}

func (l *Logger) EmailVerified(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventEmailVerified, &userID, true))
}

func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordResetRequested, &userID, true))
}

func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordReset, &userID, true))
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordChanged, &userID, true))
}

func workspaceEvent(r *http.Request, eventType string, actorID, workspaceID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:    audit.CategoryWorkspace,
		EventType:   eventType,
		ActorID:     &actorID,
		WorkspaceID: &workspaceID,
		IP:          ratelimit.ClientIP(r),
		UserAgent:   r.UserAgent(),
		Success:     true,
	}
}

func (l *Logger) WorkspaceDeleted(ctx context.Context, r *http.Request, actorID, workspaceID primitive.ObjectID, name string) {
	e := workspaceEvent(r, audit.EventWorkspaceDeleted, actorID, workspaceID)
	e.Details = map[string]string{"name": name}
	l.Log(ctx, e)
}

func (l *Logger) OwnershipTransferred(ctx context.Context, r *http.Request, actorID, workspaceID, newOwnerID primitive.ObjectID) {
	e := workspaceEvent(r, audit.EventOwnershipTransferred, actorID, workspaceID)
	e.UserID = &newOwnerID
	l.Log(ctx, e)
}

func (l *Logger) InviteSent(ctx context.Context, r *http.Request, actorID, workspaceID, inviteeID primitive.ObjectID, role string) {
	e := workspaceEvent(r, audit.EventInviteSent, actorID, workspaceID)
	e.UserID = &inviteeID
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}

func (l *Logger) InviteAccepted(ctx context.Context, r *http.Request, userID, workspaceID primitive.ObjectID, role string) {
	e := workspaceEvent(r, audit.EventInviteAccepted, userID, workspaceID)
	e.UserID = &userID
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}
