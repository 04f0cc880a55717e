// internal/progress/progress_test.go
package progress_test

import (
	"sync"
	"testing"
	"time"

	"github.com/eventhub-tools/ehreader/internal/progress"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

func newTracker(t *testing.T, interval time.Duration) *progress.Tracker {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", DevMode: true})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return progress.New(interval, log)
}

func TestCounters(t *testing.T) {
	tr := newTracker(t, time.Minute)

	tr.IncrementRead()
	tr.IncrementRead()
	tr.IncrementSkipped()
	tr.IncrementDuplicated()

	if got := tr.Read(); got != 2 {
		t.Errorf("Read = %d, want 2", got)
	}
	if got := tr.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	if got := tr.Duplicated(); got != 1 {
		t.Errorf("Duplicated = %d, want 1", got)
	}
}

func TestCountersConcurrent(t *testing.T) {
	tr := newTracker(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.IncrementRead()
			}
		}()
	}
	wg.Wait()

	if got := tr.Read(); got != 800 {
		t.Errorf("Read = %d, want 800", got)
	}
}

func TestOperationGuard(t *testing.T) {
	tr := newTracker(t, time.Minute)

	op := tr.StartOperation()
	if got := tr.ActiveOperations(); got != 1 {
		t.Errorf("ActiveOperations = %d, want 1", got)
	}

	op.End()
	if got := tr.ActiveOperations(); got != 0 {
		t.Errorf("ActiveOperations = %d after End, want 0", got)
	}

	// A second End must not underflow the count.
	op.End()
	if got := tr.ActiveOperations(); got != 0 {
		t.Errorf("ActiveOperations = %d after double End, want 0", got)
	}
}

func TestOperationGuardOnErrorPath(t *testing.T) {
	tr := newTracker(t, time.Minute)

	func() {
		op := tr.StartOperation()
		defer op.End()
		// simulated early return
	}()

	if got := tr.ActiveOperations(); got != 0 {
		t.Errorf("ActiveOperations = %d, want 0", got)
	}
}

func TestShouldShowProgressFirstMessage(t *testing.T) {
	tr := newTracker(t, time.Hour)

	tr.IncrementRead()
	if !tr.ShouldShowProgress() {
		t.Error("first message did not trigger progress")
	}
}

func TestShouldShowProgressThrottles(t *testing.T) {
	tr := newTracker(t, time.Hour)

	tr.IncrementRead()
	_ = tr.ShouldShowProgress()

	tr.IncrementRead()
	if tr.ShouldShowProgress() {
		t.Error("second message inside the interval triggered progress")
	}
}

func TestShouldShowProgressAfterInterval(t *testing.T) {
	tr := newTracker(t, 20*time.Millisecond)

	tr.IncrementRead()
	_ = tr.ShouldShowProgress()

	time.Sleep(40 * time.Millisecond)
	tr.IncrementRead()
	if !tr.ShouldShowProgress() {
		t.Error("elapsed interval did not trigger progress")
	}
}

func TestMaxRate(t *testing.T) {
	tr := newTracker(t, time.Minute)

	tr.UpdateMaxRate(10.5)
	tr.UpdateMaxRate(3.2)
	if got := tr.MaxRate(); got != 10.5 {
		t.Errorf("MaxRate = %v, want 10.5", got)
	}
	tr.UpdateMaxRate(42.0)
	if got := tr.MaxRate(); got != 42.0 {
		t.Errorf("MaxRate = %v, want 42.0", got)
	}
}
