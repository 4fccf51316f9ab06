// internal/app/features/profile/handler.go
package profile

import (
	"github.com/dalemusser/flowbase/internal/app/services/accounts"
	"github.com/dalemusser/flowbase/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns the signed-in user's profile endpoints.
type Handler struct {
	Accounts *accounts.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a Handler over the accounts service.
func NewHandler(svc *accounts.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: svc,
		AuditLog: audit,
		Log:      logger,
	}
}
