// pkg/logger/logger_test.go
package logger_test

import (
	"testing"

	"github.com/eventhub-tools/ehreader/pkg/logger"
)

func TestNewDefaults(t *testing.T) {
	log, err := logger.New(logger.Config{})
	if err != nil {
		t.Fatalf("New with empty config: %v", err)
	}
	log.Info("default level is info")
	log.Sync()
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := logger.New(logger.Config{Level: "loud"}); err == nil {
		t.Error("New with invalid level succeeded")
	}
}

func TestNamed(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "debug", DevMode: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := log.Named("sub")
	if sub == nil {
		t.Fatal("Named returned nil")
	}
	sub.Debug("named logger works")
}
