// internal/app/features/workspaces/handler.go
package workspaces

import (
	invitesvc "github.com/dalemusser/flowbase/internal/app/services/invitations"
	workspacesvc "github.com/dalemusser/flowbase/internal/app/services/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/auditlog"
	"github.com/dalemusser/flowbase/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Handler provides the workspace membership endpoints.
type Handler struct {
	Workspaces *workspacesvc.Service
	Invites    *invitesvc.Service
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	// AfterResponse runs work that must not delay the reply, such as
	// invitation cleanup. It defaults to starting a goroutine.
	AfterResponse func(func())
}

// NewHandler creates a new workspaces Handler.
func NewHandler(ws *workspacesvc.Service, invites *invitesvc.Service, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Workspaces:    ws,
		Invites:       invites,
		AuditLog:      audit,
		Metrics:       m,
		Log:           logger,
		AfterResponse: func(fn func()) { go fn() },
	}
}
