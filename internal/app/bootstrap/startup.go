// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// background tracks goroutines started outside the request path.
type background struct {
	mu      sync.Mutex
	cleanup *workers.ExpiredCleanup
	stops   []func()
}

func (b *background) onShutdown(stop func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops = append(b.stops, stop)
}

// stop runs the registered stops in reverse order and stops the cleanup
// worker last.
func (b *background) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.stops) - 1; i >= 0; i-- {
		b.stops[i]()
	}
	b.stops = nil
	if b.cleanup != nil {
		b.cleanup.Stop()
		b.cleanup = nil
	}
}

// Startup starts the expired record cleanup worker after the schema exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	t := timeouts.Current()
	logger.Info("operation timeouts",
		zap.Duration("ping", t.Ping),
		zap.Duration("short", t.Short),
		zap.Duration("medium", t.Medium),
		zap.Duration("long", t.Long))

	w := workers.NewExpiredCleanup(map[string]workers.Purger{
		"workspace_invitations": invitationstore.New(deps.MongoDatabase),
		"verifications":         emailverify.New(deps.MongoDatabase),
	}, logger, appCfg.CleanupInterval)
	w.Start()

	if deps.bg != nil {
		deps.bg.mu.Lock()
		deps.bg.cleanup = w
		deps.bg.mu.Unlock()
	}
	return nil
}
