// internal/storage/storage.go

// Package storage defines the embedded key-value store contract shared by
// the reader and the downstream export tooling, plus the flat key namespace
// both sides agree on.
package storage

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
)

// Store is an embedded, crash-safe ordered key-value store. Implementations
// must support concurrent readers and writers; calls may block on disk I/O.
type Store interface {
	// Get returns the value for key, or found=false if the key is absent.
	Get(key string) (value []byte, found bool, err error)
	Insert(key string, value []byte) error
	Remove(key string) error
	ContainsKey(key string) (bool, error)
	// Flush persists all buffered writes to stable storage.
	Flush() error
	// Scan visits every key with the given prefix in ascending key order.
	Scan(prefix string, fn func(key string, value []byte) error) error
	// HealthCheck verifies a sentinel insert/get/remove round-trip.
	HealthCheck(ctx context.Context) error
	Close() error
}

// MessageKey builds the de-duplication key for one event.
// The event id is the source sequence number; if the source ever reused
// sequence numbers across reconnects, de-dup would mistrigger.
func MessageKey(entityPath, partitionID, eventID string) string {
	return fmt.Sprintf("msg:%s:%s:%s", entityPath, partitionID, eventID)
}

// CheckpointKey builds the per-partition checkpoint key.
func CheckpointKey(entityPath, partitionID string) string {
	return fmt.Sprintf("checkpoint:%s:%s", entityPath, partitionID)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeForFilename makes s safe to use as a cross-platform file name.
func SanitizeForFilename(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "_")
}

// EntityStorePath derives the deterministic store location for an entity:
// <baseDataFolder>/<databasePath>/<broker-host>.db. The host is taken from
// the first broker address so that every run against the same endpoint
// resolves to the same store.
func EntityStorePath(baseDataFolder, databasePath, broker string) (string, error) {
	if broker == "" {
		return "", fmt.Errorf("storage: broker address is empty")
	}
	host := broker
	if h, _, err := net.SplitHostPort(broker); err == nil {
		host = h
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("storage: no host in broker address %q", broker)
	}
	return filepath.Join(baseDataFolder, databasePath, SanitizeForFilename(host)+".db"), nil
}
