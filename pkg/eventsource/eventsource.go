// pkg/eventsource/eventsource.go
//
// Package eventsource defines the minimal contracts for reading a
// partitioned event stream. It pulls in no driver code and does not
// depend on any concrete implementation.
package eventsource

import (
	"context"
	"time"
)

// Event represents one record received from a partition.
type Event struct {
	SequenceNumber int64     // monotonic per-partition sequence number
	Offset         string    // source-defined position token (may be empty)
	PartitionKey   string    // producer-assigned key (may be empty)
	EnqueuedTime   time.Time // producer-side enqueue time
	Body           []byte    // payload
}

// PartitionProperties describes a partition, used for connectivity probes.
type PartitionProperties struct {
	PartitionID                string
	BeginningSequenceNumber    int64
	LastEnqueuedSequenceNumber int64
	IsEmpty                    bool
}

// StartPosition selects where a partition stream begins.
// The zero value means "earliest".
type StartPosition struct {
	FromOffset bool
	Offset     int64
}

// Earliest returns the position at the beginning of the partition.
func Earliest() StartPosition { return StartPosition{} }

// FromOffset returns a position at the given numeric offset.
func FromOffset(offset int64) StartPosition {
	return StartPosition{FromOffset: true, Offset: offset}
}

// Stream delivers events from a single partition.
//
//	Events() is closed when the stream ends; a closed channel with no
//	pending error means the source terminated the stream.
//	Errors() carries transient receive errors; the stream stays usable.
//	Close() releases the underlying consumer. Safe to call once.
type Stream interface {
	Events() <-chan *Event
	Errors() <-chan error
	Close() error
}

// Source describes a partitioned event-stream service.
type Source interface {
	// PartitionIDs lists the ids of all partitions of the entity.
	PartitionIDs(ctx context.Context) ([]string, error)
	// PartitionProperties fetches metadata for one partition.
	PartitionProperties(ctx context.Context, partitionID string) (PartitionProperties, error)
	// OpenPartition starts a stream over one partition from the given position.
	OpenPartition(ctx context.Context, partitionID string, pos StartPosition) (Stream, error)
	Close() error
}
