// internal/consumer/reader.go

// Package consumer contains the partition read loops, the fan-out
// orchestrator and the shutdown coordinator.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub-tools/ehreader/internal/checkpoint"
	"github.com/eventhub-tools/ehreader/internal/filter"
	"github.com/eventhub-tools/ehreader/internal/metrics"
	"github.com/eventhub-tools/ehreader/internal/model"
	"github.com/eventhub-tools/ehreader/internal/progress"
	"github.com/eventhub-tools/ehreader/internal/storage"
	"github.com/eventhub-tools/ehreader/pkg/eventsource"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

const (
	// tickInterval paces the shutdown check and the throttled progress line.
	tickInterval = 100 * time.Millisecond
	// receiveIdleTimeout bounds how long the loop waits for an event before
	// re-checking its exit conditions.
	receiveIdleTimeout = 5 * time.Second
	// receive errors back off for errorWaitSteps * tickInterval, re-checking
	// the shutdown flag at every step.
	errorWaitSteps = 10
	// streamCloseTimeout caps how long a stream close may block.
	streamCloseTimeout = 5 * time.Second
)

// Exporter writes a received message to an external target.
type Exporter interface {
	Export(msg *model.InboundMessage) error
}

// Options configures a Reader.
type Options struct {
	// EntityPath names the consumed entity; part of every store key.
	EntityPath string
	// PartitionID selects a single partition, or -1 for all partitions.
	PartitionID int
	// IgnoreCheckpoint starts from the earliest event and disables de-dup.
	IgnoreCheckpoint bool
	// DumpFilter keeps only messages containing at least one entry
	// (case-insensitive). Empty means keep everything.
	DumpFilter []string
	// Verbose logs a body preview for every persisted message.
	Verbose bool
}

// Reader consumes one entity: it resumes each partition from its
// checkpoint, de-duplicates, filters, persists and optionally exports
// every event, and coordinates graceful shutdown across partition tasks.
type Reader struct {
	opts        Options
	store       storage.Store
	source      eventsource.Source
	checkpoints *checkpoint.Manager
	exporter    Exporter // nil when file export is disabled
	tracker     *progress.Tracker

	shutdown atomic.Bool

	log *logger.Logger
}

// New creates a Reader. exporter may be nil.
func New(
	opts Options,
	store storage.Store,
	source eventsource.Source,
	checkpoints *checkpoint.Manager,
	exporter Exporter,
	tracker *progress.Tracker,
	log *logger.Logger,
) *Reader {
	return &Reader{
		opts:        opts,
		store:       store,
		source:      source,
		checkpoints: checkpoints,
		exporter:    exporter,
		tracker:     tracker,
		log:         log.Named("consumer"),
	}
}

// Tracker exposes the shared progress tracker.
func (r *Reader) Tracker() *progress.Tracker { return r.tracker }

// Run consumes the configured partition, or all partitions when
// PartitionID is -1. It returns when every partition task has finished.
func (r *Reader) Run(ctx context.Context) error {
	if r.opts.PartitionID < 0 {
		return r.readAllPartitions(ctx)
	}
	return r.readPartition(ctx, strconv.Itoa(r.opts.PartitionID))
}

// readPartition runs the receive loop for a single partition until
// shutdown, context cancellation or a fatal processing error.
func (r *Reader) readPartition(ctx context.Context, partitionID string) error {
	log := r.log.Named("partition-" + partitionID)

	pos, err := r.checkpoints.ResolveStartPosition(partitionID, r.opts.IgnoreCheckpoint)
	if err != nil {
		return fmt.Errorf("partition %s: resolve start position: %w", partitionID, err)
	}
	if pos.FromOffset {
		log.Info("resuming from checkpoint", zap.Int64("offset", pos.Offset))
	} else {
		log.Info("starting from earliest event")
	}

	stream, err := r.source.OpenPartition(ctx, partitionID, pos)
	if err != nil {
		return fmt.Errorf("partition %s: open stream: %w", partitionID, err)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	idle := time.NewTimer(receiveIdleTimeout)
	defer idle.Stop()

	// Local channel variables: a closed channel is replaced with nil so
	// its select branch goes quiet instead of yielding zero values forever.
	events := stream.Events()
	errs := stream.Errors()

	var loopErr error

loop:
	for {
		select {
		case <-ticker.C:
			if r.shutdown.Load() {
				log.Info("shutdown requested, stopping partition")
				break loop
			}
			if r.tracker.ShouldShowProgress() {
				r.tracker.LogProgress()
			}

		case ev, ok := <-events:
			if !ok {
				log.Warn("event stream closed by source")
				break loop
			}
			resetTimer(idle, receiveIdleTimeout)
			if r.shutdown.Load() {
				log.Info("shutdown requested, stopping partition")
				break loop
			}
			if err := r.processEvent(ev, partitionID, log); err != nil {
				loopErr = fmt.Errorf("partition %s: %w", partitionID, err)
				break loop
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			metrics.ReceiveErrors.Inc()
			log.Warn("receive error", zap.Error(err))
			if r.waitAfterError(ctx) {
				log.Info("shutdown requested during error backoff")
				break loop
			}

		case <-idle.C:
			// No events within the receive window. Loop back so the
			// ticker branch can observe shutdown and progress state.
			resetTimer(idle, receiveIdleTimeout)

		case <-ctx.Done():
			log.Info("context cancelled, stopping partition")
			break loop
		}
	}

	r.closeStream(stream, log)
	return loopErr
}

// waitAfterError pauses after a receive error. It reports whether
// shutdown was requested during the wait.
func (r *Reader) waitAfterError(ctx context.Context) bool {
	for i := 0; i < errorWaitSteps; i++ {
		if r.shutdown.Load() {
			return true
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(tickInterval):
		}
	}
	return r.shutdown.Load()
}

// closeStream closes the partition stream with a hard time bound.
// Failures are logged and swallowed: by the time a stream is closed the
// partition's work is already accounted for, and a hung driver must not
// wedge shutdown.
func (r *Reader) closeStream(stream eventsource.Stream, log *logger.Logger) {
	done := make(chan error, 1)
	go func() { done <- stream.Close() }()

	select {
	case err := <-done:
		if err != nil {
			log.Error("stream close failed", zap.Error(err))
		} else {
			log.Debug("stream closed")
		}
	case <-time.After(streamCloseTimeout):
		log.Error("stream close timed out", zap.Duration("timeout", streamCloseTimeout))
	}
}

// processEvent persists a single event. Store and export failures are
// fatal to the partition; a failed checkpoint save is logged and the
// event still counts as processed (the next run may re-read it, and
// de-dup will absorb the replay).
func (r *Reader) processEvent(ev *eventsource.Event, partitionID string, log *logger.Logger) error {
	op := r.tracker.StartOperation()
	defer op.End()

	eventID := strconv.FormatInt(ev.SequenceNumber, 10)
	messageKey := storage.MessageKey(r.opts.EntityPath, partitionID, eventID)

	if !r.opts.IgnoreCheckpoint {
		exists, err := r.store.ContainsKey(messageKey)
		if err != nil {
			return fmt.Errorf("duplicate check %s: %w", messageKey, err)
		}
		if exists {
			r.tracker.IncrementDuplicated()
			return nil
		}
	}

	messageData := string(ev.Body)

	if len(r.opts.DumpFilter) > 0 && !filter.Matches(messageData, r.opts.DumpFilter) {
		r.tracker.IncrementSkipped()
		return nil
	}

	seq := ev.SequenceNumber
	msg := &model.InboundMessage{
		ID:             eventID,
		EventID:        eventID,
		PartitionKey:   ev.PartitionKey,
		PartitionID:    partitionID,
		QueuedTime:     ev.EnqueuedTime.UTC().Truncate(time.Second),
		EventSeqNumber: &seq,
		EventOffset:    ev.Offset,
		ProcessedAt:    time.Now().UTC(),
		MsgData:        messageData,
		Status:         model.StatusRead,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", eventID, err)
	}
	if err := r.store.Insert(messageKey, data); err != nil {
		return fmt.Errorf("store message %s: %w", messageKey, err)
	}

	if r.exporter != nil {
		if err := r.exporter.Export(msg); err != nil {
			return fmt.Errorf("export message %s: %w", eventID, err)
		}
	}

	// Checkpoint after the message is durable. At-least-once: a crash
	// between insert and save replays from the previous checkpoint.
	// An ignore-checkpoint run never writes one, so it cannot move the
	// resume position of a later normal run.
	if !r.opts.IgnoreCheckpoint {
		if err := r.checkpoints.Save(partitionID, ev.SequenceNumber, ev.Offset); err != nil {
			metrics.CheckpointSaveErrors.Inc()
			log.Warn("checkpoint save failed", zap.Error(err))
		}
	}

	r.tracker.IncrementRead()
	r.tracker.LogProgressForced()

	if r.opts.Verbose {
		log.Info("message persisted",
			zap.String("event_id", eventID),
			zap.String("offset", ev.Offset),
			zap.String("preview", bodyPreview(messageData)),
		)
	}
	return nil
}

const previewLimit = 120

func bodyPreview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}

// resetTimer drains and re-arms t. Only safe when the caller owns the
// timer and its channel.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
