// internal/consumer/orchestrator.go
package consumer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

const (
	// supervisePollInterval paces the completion poll of the fan-out loop.
	supervisePollInterval = 5 * time.Second
	// forceAbortAfter bounds how long partition tasks may keep running
	// once shutdown has been requested.
	forceAbortAfter = 30 * time.Second
)

type partitionResult struct {
	partitionID string
	err         error
}

// readAllPartitions fans out one read loop per partition and supervises
// them until all finish. Under shutdown, tasks still running once the
// abort deadline (measured from supervision start) passes are cancelled
// through their context; the loop then collects the results that the
// cancellation unblocks, so no task outlives the supervisor.
func (r *Reader) readAllPartitions(ctx context.Context) error {
	partitions, err := r.source.PartitionIDs(ctx)
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	r.log.Info("starting partition tasks", zap.Int("partitions", len(partitions)))

	tasksCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()

	results := make(chan partitionResult, len(partitions))
	for _, pid := range partitions {
		pid := pid
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("partition task panicked",
						zap.String("partition", pid),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
					)
					results <- partitionResult{partitionID: pid, err: fmt.Errorf("panic: %v", rec)}
				}
			}()
			results <- partitionResult{partitionID: pid, err: r.readPartition(tasksCtx, pid)}
		}()
	}

	var (
		completed int
		failed    int
		aborted   bool
	)
	superviseStart := time.Now()

	poll := time.NewTicker(supervisePollInterval)
	defer poll.Stop()

	for completed+failed < len(partitions) {
		select {
		case res := <-results:
			if res.err != nil {
				failed++
				r.log.Error("partition task failed",
					zap.String("partition", res.partitionID), zap.Error(res.err))
			} else {
				completed++
				r.log.Info("partition task completed", zap.String("partition", res.partitionID))
			}

		case <-poll.C:
			r.log.Debug("partition tasks running",
				zap.Int("done", completed+failed), zap.Int("total", len(partitions)))
			if r.shutdown.Load() && !aborted && time.Since(superviseStart) > forceAbortAfter {
				r.log.Warn("partition tasks exceeded shutdown deadline, aborting",
					zap.Int("remaining", len(partitions)-completed-failed))
				cancelTasks()
				aborted = true
			}
		}
	}

	if err := r.store.Flush(); err != nil {
		r.log.Error("final store flush failed", zap.Error(err))
	}

	r.log.Info("all partition tasks finished",
		zap.Int("completed", completed), zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d partition tasks failed", failed, len(partitions))
	}
	return nil
}
