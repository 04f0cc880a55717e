// internal/consumer/shutdown.go
package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// drainTimeout bounds how long GracefulShutdown waits for in-flight
	// operations to finish.
	drainTimeout = 5 * time.Second
	// drainPollInterval paces the active-operation poll during the drain.
	drainPollInterval = 100 * time.Millisecond
)

// Shutdown requests the read loops to stop and flushes the store.
// Idempotent: only the first call flushes, later calls return immediately.
func (r *Reader) Shutdown() {
	if !r.shutdown.CompareAndSwap(false, true) {
		return
	}
	r.log.Info("shutdown requested")
	if err := r.store.Flush(); err != nil {
		r.log.Error("flush on shutdown failed", zap.Error(err))
	}
}

// GracefulShutdown requests a stop, then waits for in-flight operations
// to drain before the final flush and statistics. The drain is bounded:
// operations still active after the deadline are abandoned and reported.
func (r *Reader) GracefulShutdown(ctx context.Context) {
	r.Shutdown()

	active := r.tracker.ActiveOperations()
	if active > 0 {
		r.log.Info("draining active operations", zap.Uint64("active", active))

		deadline := time.Now().Add(drainTimeout)
		for polls := 0; time.Now().Before(deadline); polls++ {
			current := r.tracker.ActiveOperations()
			if current == 0 {
				break
			}
			if current != active {
				r.log.Info("still draining",
					zap.Uint64("was", active), zap.Uint64("now", current))
				active = current
			} else if polls > 0 && polls%10 == 0 {
				r.log.Info("still waiting for active operations",
					zap.Uint64("active", current))
			}
			select {
			case <-ctx.Done():
				r.log.Warn("drain interrupted", zap.Error(ctx.Err()))
				return
			case <-time.After(drainPollInterval):
			}
		}
		if remaining := r.tracker.ActiveOperations(); remaining > 0 {
			r.log.Warn("operations still active after drain deadline",
				zap.Uint64("remaining", remaining))
		}
	}

	if err := r.store.Flush(); err != nil {
		r.log.Error("final flush failed", zap.Error(err))
	}

	r.tracker.LogFinalStatistics()
}
