// internal/model/model.go

// Package model holds the records persisted in the local store.
package model

import "time"

// MessageStatus tracks what has happened to a persisted message.
type MessageStatus string

const (
	// StatusRead — the message was received and persisted by the reader.
	StatusRead MessageStatus = "Read"
	// StatusExported — set by the downstream export tool, never by the reader.
	StatusExported MessageStatus = "Exported"
)

// InboundMessage is one persisted event. Written once under its message key
// and never mutated or deleted by the reader.
type InboundMessage struct {
	ID                string        `json:"id"`
	EventID           string        `json:"event_id"`
	PartitionKey      string        `json:"partition_key,omitempty"`
	PartitionID       string        `json:"partition_id"`
	QueuedTime        time.Time     `json:"queued_time"`
	EventSeqNumber    *int64        `json:"event_seq_number,omitempty"`
	EventOffset       string        `json:"event_offset,omitempty"`
	SuggestedFilename string        `json:"suggested_filename,omitempty"`
	ProcessedAt       time.Time     `json:"processed_at"`
	MsgData           string        `json:"msg_data"`
	Status            MessageStatus `json:"status"`
}

// Checkpoint is the last acknowledged read position for a partition.
// One record per partition, overwritten on every successful save.
type Checkpoint struct {
	SequenceNumber int64     `json:"sequence_number"`
	Offset         string    `json:"offset"`
	PartitionID    string    `json:"partition_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}
