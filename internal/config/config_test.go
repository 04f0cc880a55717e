// internal/config/config_test.go
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eventhub-tools/ehreader/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
kafka:
  brokers:
    - localhost:9092
  topic: hub1
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServiceName != "ehreader" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.Kafka.Topic != "hub1" {
		t.Errorf("Kafka.Topic = %q", cfg.Kafka.Topic)
	}
	if cfg.Inbound.PartitionID != -1 {
		t.Errorf("PartitionID default = %d, want -1", cfg.Inbound.PartitionID)
	}
	if cfg.Inbound.FeedbackInterval != 10*time.Second {
		t.Errorf("FeedbackInterval default = %s, want 10s", cfg.Inbound.FeedbackInterval)
	}
	if cfg.Inbound.BaseDataFolder != "data" {
		t.Errorf("BaseDataFolder default = %q", cfg.Inbound.BaseDataFolder)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr default = %q", cfg.HTTP.Addr)
	}
}

func TestLoadFullFile(t *testing.T) {
	cfg, err := config.Load(writeConfigFile(t, `
service_name: my-reader
kafka:
  brokers:
    - broker1:9092
    - broker2:9092
  topic: events
  version: "3.6.0"
inbound:
  partition_id: 2
  ignore_checkpoint: true
  dump_filter:
    - error
    - warn
  feedback_interval: 30s
  read_to_file: true
  dump_content_only: true
  verbose: true
logging:
  level: debug
  dev_mode: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Inbound.PartitionID != 2 {
		t.Errorf("PartitionID = %d", cfg.Inbound.PartitionID)
	}
	if !cfg.Inbound.IgnoreCheckpoint || !cfg.Inbound.ReadToFile || !cfg.Inbound.DumpContentOnly {
		t.Errorf("bool flags not decoded: %+v", cfg.Inbound)
	}
	if len(cfg.Inbound.DumpFilter) != 2 || cfg.Inbound.DumpFilter[0] != "error" {
		t.Errorf("DumpFilter = %v", cfg.Inbound.DumpFilter)
	}
	if cfg.Inbound.FeedbackInterval != 30*time.Second {
		t.Errorf("FeedbackInterval = %s", cfg.Inbound.FeedbackInterval)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.DevMode {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EHREADER_KAFKA_TOPIC", "from-env")
	t.Setenv("EHREADER_INBOUND_VERBOSE", "true")

	cfg, err := config.Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kafka.Topic != "from-env" {
		t.Errorf("Kafka.Topic = %q, want env override", cfg.Kafka.Topic)
	}
	if !cfg.Inbound.Verbose {
		t.Error("Inbound.Verbose not overridden from env")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing brokers", "kafka:\n  topic: hub1\n"},
		{"missing topic", "kafka:\n  brokers:\n    - localhost:9092\n"},
		{"bad partition id", minimalYAML + "inbound:\n  partition_id: -2\n"},
		{"bad log level", minimalYAML + "logging:\n  level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.Load(writeConfigFile(t, tc.yaml)); err == nil {
				t.Error("Load succeeded, want validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
