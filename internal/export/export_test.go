// internal/export/export_test.go
package export_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eventhub-tools/ehreader/internal/export"
	"github.com/eventhub-tools/ehreader/internal/model"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", DevMode: true})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func sampleMessage() *model.InboundMessage {
	seq := int64(42)
	return &model.InboundMessage{
		ID:             "id-42",
		EventID:        "42",
		PartitionKey:   "key-a",
		PartitionID:    "0",
		QueuedTime:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		EventSeqNumber: &seq,
		EventOffset:    "1042",
		ProcessedAt:    time.Date(2025, 6, 1, 10, 0, 1, 500_000_000, time.UTC),
		MsgData:        `{"hello":"world"}`,
		Status:         model.StatusRead,
	}
}

func TestPrepare(t *testing.T) {
	base := t.TempDir()
	exp := export.New(base, "inbound", false, testLogger(t))

	if err := exp.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "inbound")); err != nil {
		t.Errorf("base dir not created: %v", err)
	}
	// Probe file must be cleaned up.
	if _, err := os.Stat(filepath.Join(base, "inbound", ".write_check")); !os.IsNotExist(err) {
		t.Error("probe file left behind")
	}
}

func TestExportFullFormat(t *testing.T) {
	base := t.TempDir()
	exp := export.New(base, "inbound", false, testLogger(t))
	if err := exp.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	msg := sampleMessage()
	if err := exp.Export(msg); err != nil {
		t.Fatalf("Export: %v", err)
	}

	path := filepath.Join(base, "inbound", "2025-06-01", "2025-06-01T10-00-01.500--1042.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"---| DETAILS",
		"id: 42",
		"partition key: key-a",
		"partition id: 0",
		"event sequence number: 42",
		"event offset: 1042",
		"---| MESSAGE BODY |",
		`{"hello":"world"}`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("exported file missing %q", want)
		}
	}
}

func TestExportContentOnly(t *testing.T) {
	base := t.TempDir()
	exp := export.New(base, "inbound", true, testLogger(t))
	if err := exp.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	msg := sampleMessage()
	if err := exp.Export(msg); err != nil {
		t.Fatalf("Export: %v", err)
	}

	path := filepath.Join(base, "inbound", "2025-06-01", "2025-06-01T10-00-01.500--1042.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if string(data) != msg.MsgData {
		t.Errorf("content-only export = %q, want %q", data, msg.MsgData)
	}
}

func TestExportMissingOffset(t *testing.T) {
	base := t.TempDir()
	exp := export.New(base, "inbound", true, testLogger(t))
	if err := exp.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	msg := sampleMessage()
	msg.EventOffset = ""
	if err := exp.Export(msg); err != nil {
		t.Fatalf("Export: %v", err)
	}

	path := filepath.Join(base, "inbound", "2025-06-01", "2025-06-01T10-00-01.500--unknown.txt")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file with unknown offset: %v", err)
	}
}
