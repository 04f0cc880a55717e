// internal/checkpoint/checkpoint_test.go
package checkpoint_test

import (
	"testing"

	"github.com/eventhub-tools/ehreader/internal/checkpoint"
	"github.com/eventhub-tools/ehreader/internal/storage"
	"github.com/eventhub-tools/ehreader/internal/storage/storagetest"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := storagetest.New()
	mgr := checkpoint.New(store, "hub1")

	if err := mgr.Save("0", 42, "1042"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cp, err := mgr.Load("0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp == nil {
		t.Fatal("Load returned nil after Save")
	}
	if cp.SequenceNumber != 42 || cp.Offset != "1042" || cp.PartitionID != "0" {
		t.Errorf("unexpected checkpoint: %+v", cp)
	}
	if cp.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	// One record per partition, overwritten in place.
	if err := mgr.Save("0", 43, "1043"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	cp, err = mgr.Load("0")
	if err != nil {
		t.Fatalf("Load after overwrite: %v", err)
	}
	if cp.SequenceNumber != 43 {
		t.Errorf("SequenceNumber = %d, want 43", cp.SequenceNumber)
	}
}

func TestLoadMissing(t *testing.T) {
	mgr := checkpoint.New(storagetest.New(), "hub1")

	cp, err := mgr.Load("7")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp != nil {
		t.Errorf("Load of missing checkpoint = %+v, want nil", cp)
	}
}

func TestLoadCorruptRecord(t *testing.T) {
	store := storagetest.New()
	key := storage.CheckpointKey("hub1", "0")
	if err := store.Insert(key, []byte("{not json")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	mgr := checkpoint.New(store, "hub1")
	if _, err := mgr.Load("0"); err == nil {
		t.Error("Load of corrupt record succeeded, want error")
	}
}

func TestResolveStartPosition(t *testing.T) {
	store := storagetest.New()
	mgr := checkpoint.New(store, "hub1")

	// No checkpoint: earliest.
	pos, err := mgr.ResolveStartPosition("0", false)
	if err != nil {
		t.Fatalf("ResolveStartPosition: %v", err)
	}
	if pos.FromOffset {
		t.Errorf("no checkpoint: pos = %+v, want earliest", pos)
	}

	// Numeric offset wins.
	if err := mgr.Save("0", 42, "1042"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	pos, err = mgr.ResolveStartPosition("0", false)
	if err != nil {
		t.Fatalf("ResolveStartPosition: %v", err)
	}
	if !pos.FromOffset || pos.Offset != 1042 {
		t.Errorf("numeric offset: pos = %+v, want offset 1042", pos)
	}

	// Non-numeric offset falls back to the sequence number.
	if err := mgr.Save("1", 99, "not-a-number"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	pos, err = mgr.ResolveStartPosition("1", false)
	if err != nil {
		t.Fatalf("ResolveStartPosition: %v", err)
	}
	if !pos.FromOffset || pos.Offset != 99 {
		t.Errorf("fallback: pos = %+v, want offset 99", pos)
	}

	// ignoreCheckpoint overrides a stored checkpoint.
	pos, err = mgr.ResolveStartPosition("0", true)
	if err != nil {
		t.Fatalf("ResolveStartPosition: %v", err)
	}
	if pos.FromOffset {
		t.Errorf("ignoreCheckpoint: pos = %+v, want earliest", pos)
	}
}
