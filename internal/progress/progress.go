// internal/progress/progress.go

// Package progress tracks consumption statistics shared by all partition
// tasks. The counters are lock-free; the handful of non-atomic fields are
// guarded by small mutexes that are never held across I/O.
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub-tools/ehreader/internal/metrics"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

// Tracker owns the run-wide counters, including the active-operation count
// the shutdown drain waits on. One Tracker per run, shared by every
// partition task.
type Tracker struct {
	read       atomic.Uint64
	skipped    atomic.Uint64
	duplicated atomic.Uint64
	activeOps  atomic.Uint64

	startTime        time.Time
	feedbackInterval time.Duration

	lastMsgMu   sync.Mutex
	lastMsgTime time.Time

	progressMu   sync.Mutex
	lastProgress time.Time

	rateMu  sync.Mutex
	maxRate float64

	log *logger.Logger
}

// New creates a tracker with the given feedback interval.
func New(feedbackInterval time.Duration, log *logger.Logger) *Tracker {
	now := time.Now()
	return &Tracker{
		startTime:        now,
		feedbackInterval: feedbackInterval,
		lastProgress:     now,
		log:              log.Named("progress"),
	}
}

// IncrementRead bumps the read counter and stamps the last-message time.
func (t *Tracker) IncrementRead() {
	t.read.Add(1)
	metrics.MessagesRead.Inc()

	t.lastMsgMu.Lock()
	t.lastMsgTime = time.Now()
	t.lastMsgMu.Unlock()
}

// IncrementSkipped bumps the filtered-out counter.
func (t *Tracker) IncrementSkipped() {
	t.skipped.Add(1)
	metrics.MessagesSkipped.Inc()
}

// IncrementDuplicated bumps the duplicate counter.
func (t *Tracker) IncrementDuplicated() {
	t.duplicated.Add(1)
	metrics.MessagesDuplicated.Inc()
}

// Read returns the total number of persisted messages.
func (t *Tracker) Read() uint64 { return t.read.Load() }

// Skipped returns the total number of filtered-out messages.
func (t *Tracker) Skipped() uint64 { return t.skipped.Load() }

// Duplicated returns the total number of detected duplicates.
func (t *Tracker) Duplicated() uint64 { return t.duplicated.Load() }

// ActiveOperations returns the number of per-event operations in flight.
func (t *Tracker) ActiveOperations() uint64 { return t.activeOps.Load() }

// Elapsed returns the wall time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration { return time.Since(t.startTime) }

// -----------------------------------------------------------------------------
// Operation guard
// -----------------------------------------------------------------------------

// Operation pairs an increment of the active-operation count with a
// guaranteed decrement. Callers must defer End() immediately after
// StartOperation so every exit path, including error returns, releases
// the count. The shutdown drain depends on this pairing.
type Operation struct {
	tracker *Tracker
	done    atomic.Bool
}

// StartOperation increments the active-operation count.
func (t *Tracker) StartOperation() *Operation {
	t.activeOps.Add(1)
	metrics.ActiveOperations.Inc()
	return &Operation{tracker: t}
}

// End decrements the active-operation count. Idempotent.
func (o *Operation) End() {
	if o.done.CompareAndSwap(false, true) {
		o.tracker.activeOps.Add(^uint64(0))
		metrics.ActiveOperations.Dec()
	}
}

// -----------------------------------------------------------------------------
// Progress reporting
// -----------------------------------------------------------------------------

// ShouldShowProgress reports whether a progress line is due: on the very
// first message, and thereafter no more often than the feedback interval.
// Returning true updates the last-shown instant, so the decision must not
// be made from more than one place without synchronization around it.
func (t *Tracker) ShouldShowProgress() bool {
	now := time.Now()

	t.progressMu.Lock()
	defer t.progressMu.Unlock()

	if now.Sub(t.lastProgress) >= t.feedbackInterval || t.read.Load() == 1 {
		t.lastProgress = now
		return true
	}
	return false
}

// LogProgress emits the current progress line.
func (t *Tracker) LogProgress() {
	t.log.Info(t.progressLine())
}

// LogProgressForced resets the throttle and emits the progress line.
func (t *Tracker) LogProgressForced() {
	t.progressMu.Lock()
	t.lastProgress = time.Now()
	t.progressMu.Unlock()

	t.LogProgress()
}

// UpdateMaxRate records rate if it exceeds the stored maximum.
func (t *Tracker) UpdateMaxRate(rate float64) {
	t.rateMu.Lock()
	if rate > t.maxRate {
		t.maxRate = rate
	}
	t.rateMu.Unlock()
}

// MaxRate returns the peak observed processing rate.
func (t *Tracker) MaxRate() float64 {
	t.rateMu.Lock()
	defer t.rateMu.Unlock()
	return t.maxRate
}

func (t *Tracker) progressLine() string {
	read := t.read.Load()
	skipped := t.skipped.Load()
	duplicated := t.duplicated.Load()

	elapsed := t.Elapsed()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(read) / elapsed.Seconds()
	}
	t.UpdateMaxRate(rate)

	t.lastMsgMu.Lock()
	lastMsg := "never"
	if !t.lastMsgTime.IsZero() {
		lastMsg = t.lastMsgTime.Format("15:04:05.000")
	}
	t.lastMsgMu.Unlock()

	return fmt.Sprintf("read=%d skipped=%d duplicated=%d rate=%.2f/s runtime=%s last=%s",
		read, skipped, duplicated, rate, elapsed.Truncate(time.Millisecond), lastMsg)
}

// LogFinalStatistics emits the end-of-run summary.
func (t *Tracker) LogFinalStatistics() {
	read := t.read.Load()
	elapsed := t.Elapsed()

	avgRate := 0.0
	if read > 0 && elapsed > 0 {
		avgRate = float64(read) / elapsed.Seconds()
	}

	t.log.Info("runtime statistics",
		zap.Uint64("messages_read", read),
		zap.Uint64("messages_skipped", t.skipped.Load()),
		zap.Uint64("messages_duplicated", t.duplicated.Load()),
		zap.Duration("runtime", elapsed.Truncate(time.Millisecond)),
		zap.Float64("avg_rate_per_sec", avgRate),
		zap.Float64("peak_rate_per_sec", t.MaxRate()),
	)
}
