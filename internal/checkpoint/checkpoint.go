// internal/checkpoint/checkpoint.go

// Package checkpoint persists and restores per-partition read positions.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/eventhub-tools/ehreader/internal/model"
	"github.com/eventhub-tools/ehreader/internal/storage"
	"github.com/eventhub-tools/ehreader/pkg/eventsource"
)

// Manager reads and writes checkpoint records for one entity.
type Manager struct {
	store      storage.Store
	entityPath string
}

// New creates a checkpoint manager bound to an entity.
func New(store storage.Store, entityPath string) *Manager {
	return &Manager{store: store, entityPath: entityPath}
}

// Save overwrites the checkpoint for partitionID with the given position.
func (m *Manager) Save(partitionID string, sequenceNumber int64, offset string) error {
	cp := model.Checkpoint{
		SequenceNumber: sequenceNumber,
		Offset:         offset,
		PartitionID:    partitionID,
		UpdatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: encode partition %s: %w", partitionID, err)
	}
	key := storage.CheckpointKey(m.entityPath, partitionID)
	if err := m.store.Insert(key, data); err != nil {
		return fmt.Errorf("checkpoint: save partition %s: %w", partitionID, err)
	}
	return nil
}

// Load returns the stored checkpoint for partitionID, or nil if none exists.
// A present but undecodable record is an error: resuming from a guessed
// position silently would defeat the point of checkpointing.
func (m *Manager) Load(partitionID string) (*model.Checkpoint, error) {
	key := storage.CheckpointKey(m.entityPath, partitionID)
	data, found, err := m.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load partition %s: %w", partitionID, err)
	}
	if !found {
		return nil, nil
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: decode partition %s: %w", partitionID, err)
	}
	return &cp, nil
}

// ResolveStartPosition decides where a partition read should begin.
// With no checkpoint, or when the caller asked to ignore one, the read
// starts from the earliest available event. Otherwise the stored offset is
// used when it parses as an integer, falling back to the sequence number.
func (m *Manager) ResolveStartPosition(partitionID string, ignoreCheckpoint bool) (eventsource.StartPosition, error) {
	if ignoreCheckpoint {
		return eventsource.Earliest(), nil
	}
	cp, err := m.Load(partitionID)
	if err != nil {
		return eventsource.StartPosition{}, err
	}
	if cp == nil {
		return eventsource.Earliest(), nil
	}
	if n, err := strconv.ParseInt(cp.Offset, 10, 64); err == nil {
		return eventsource.FromOffset(n), nil
	}
	return eventsource.FromOffset(cp.SequenceNumber), nil
}
