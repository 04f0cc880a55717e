// internal/config/config.go
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/eventhub-tools/ehreader/pkg/backoff"
	"github.com/eventhub-tools/ehreader/pkg/httpserver"
	"github.com/eventhub-tools/ehreader/pkg/logger"
	"github.com/eventhub-tools/ehreader/pkg/telemetry"
)

/*
   --------------------------------------------------------------------------
   STRUCTURES
   --------------------------------------------------------------------------
*/

// Config holds every setting of the reader.
type Config struct {
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	Kafka          KafkaConfig       `mapstructure:"kafka"`
	Inbound        InboundConfig     `mapstructure:"inbound"`
	Telemetry      telemetry.Config  `mapstructure:"telemetry"`
	Logging        Logging           `mapstructure:"logging"`
	HTTP           httpserver.Config `mapstructure:"http"`
}

// KafkaConfig holds the event-source connection settings.
type KafkaConfig struct {
	Brokers []string       `mapstructure:"brokers"`
	Topic   string         `mapstructure:"topic"`
	Version string         `mapstructure:"version"`
	Backoff backoff.Config `mapstructure:"backoff"`
}

// InboundConfig holds the read-loop behaviour settings.
type InboundConfig struct {
	// PartitionID selects a single partition; -1 consumes all of them.
	PartitionID int `mapstructure:"partition_id"`
	// IgnoreCheckpoint restarts from the earliest event and disables de-dup.
	IgnoreCheckpoint bool `mapstructure:"ignore_checkpoint"`
	// DumpFilter keeps only messages containing at least one entry.
	DumpFilter []string `mapstructure:"dump_filter"`
	// FeedbackInterval throttles the progress line.
	FeedbackInterval time.Duration `mapstructure:"feedback_interval"`
	// ReadToFile additionally exports each message to a txt file.
	ReadToFile bool `mapstructure:"read_to_file"`
	// DumpContentOnly exports the raw body without the details header.
	DumpContentOnly bool `mapstructure:"dump_content_only"`
	// ReceivedMsgPath is the export directory, relative to BaseDataFolder.
	ReceivedMsgPath string `mapstructure:"received_msg_path"`
	// DatabasePath is the store directory, relative to BaseDataFolder.
	DatabasePath string `mapstructure:"database_path"`
	// BaseDataFolder roots all on-disk state.
	BaseDataFolder string `mapstructure:"base_data_folder"`
	// Verbose logs a body preview for every persisted message.
	Verbose bool `mapstructure:"verbose"`
}

// Logging holds logger settings.
type Logging struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
}

/*
   --------------------------------------------------------------------------
   LOADER
   --------------------------------------------------------------------------
*/

// Load reads the config from defaults, EHREADER_* env vars and an optional
// YAML file, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ---------- 1) Defaults ----------
	v.SetDefault("service_name", "ehreader")
	v.SetDefault("service_version", "v1.0.0")

	// Kafka
	v.SetDefault("kafka.version", "2.8.0")

	// Inbound
	v.SetDefault("inbound.partition_id", -1)
	v.SetDefault("inbound.ignore_checkpoint", false)
	v.SetDefault("inbound.feedback_interval", "10s")
	v.SetDefault("inbound.read_to_file", false)
	v.SetDefault("inbound.dump_content_only", false)
	v.SetDefault("inbound.received_msg_path", "inbound")
	v.SetDefault("inbound.database_path", "db")
	v.SetDefault("inbound.base_data_folder", "data")
	v.SetDefault("inbound.verbose", false)

	// Telemetry: tracing stays off until an endpoint is configured.
	v.SetDefault("telemetry.otel_endpoint", "")
	v.SetDefault("telemetry.insecure", false)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dev_mode", false)

	// HTTP
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("http.healthz_path", "/healthz")
	v.SetDefault("http.readyz_path", "/readyz")

	// ---------- 2) ENV ----------
	v.SetEnvPrefix("EHREADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// ---------- 3) Optional file ----------
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", v.ConfigFileUsed(), err)
		}
	}

	// ---------- 4) Decode ----------
	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToBoolHook,
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &cfg,
		DecodeHook: decodeHook,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// ---------- 5) Validation ----------
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// stringToBoolHook parses true/false, otherwise passes data through.
func stringToBoolHook(f, t reflect.Kind, data interface{}) (interface{}, error) {
	if f == reflect.String && t == reflect.Bool {
		return strconv.ParseBool(data.(string))
	}
	return data, nil
}

/*
   --------------------------------------------------------------------------
   VALIDATION
   --------------------------------------------------------------------------
*/

func (c *Config) Validate() error {
	// Service
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}

	// Inbound
	if c.Inbound.PartitionID < -1 {
		return fmt.Errorf("inbound.partition_id must be -1 (all) or >= 0")
	}
	if c.Inbound.FeedbackInterval <= 0 {
		return fmt.Errorf("inbound.feedback_interval must be > 0")
	}
	if c.Inbound.BaseDataFolder == "" {
		return fmt.Errorf("inbound.base_data_folder is required")
	}
	if c.Inbound.DatabasePath == "" {
		return fmt.Errorf("inbound.database_path is required")
	}
	if c.Inbound.ReadToFile && c.Inbound.ReceivedMsgPath == "" {
		return fmt.Errorf("inbound.received_msg_path is required when read_to_file is set")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	return nil
}

// LoggerConfig adapts the logging section for the logger package.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, DevMode: c.Logging.DevMode}
}
