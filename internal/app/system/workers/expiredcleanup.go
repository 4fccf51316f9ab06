// internal/app/system/workers/expiredcleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger deletes records that expired at or before now.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpiredCleanup is a background worker that removes expired invitations
// and verification records. The TTL indexes do the same eventually; this
// keeps "live invitation" checks from seeing stale rows for up to a minute.
type ExpiredCleanup struct {
	purgers  map[string]Purger
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewExpiredCleanup creates the worker. purgers is keyed by a name used in logs.
func NewExpiredCleanup(purgers map[string]Purger, logger *zap.Logger, interval time.Duration) *ExpiredCleanup {
	return &ExpiredCleanup{
		purgers:  purgers,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *ExpiredCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("expired record cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *ExpiredCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("expired record cleanup worker stopped")
}

func (w *ExpiredCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(context.Background())
		}
	}
}

// RunOnce purges every collection once and returns the total removed.
func (w *ExpiredCleanup) RunOnce(parent context.Context) int64 {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	var total int64
	now := w.now().UTC()
	for name, p := range w.purgers {
		n, err := p.DeleteExpired(ctx, now)
		if err != nil {
			w.log.Error("failed to purge expired records", zap.String("collection", name), zap.Error(err))
			continue
		}
		if n > 0 {
			w.log.Info("purged expired records", zap.String("collection", name), zap.Int64("count", n))
		}
		total += n
	}
	return total
}
