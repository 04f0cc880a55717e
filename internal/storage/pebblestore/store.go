// internal/storage/pebblestore/store.go
package pebblestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/eventhub-tools/ehreader/internal/storage"
)

const healthCheckKey = "__health_check__"

// Options configures the store.
type Options struct {
	Path         string
	CacheSize    int64
	MaxOpenFiles int
}

func (o *Options) applyDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = 8 << 20
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = 1000
	}
}

// Store implements storage.Store on top of Pebble.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store at opts.Path.
func Open(opts Options) (*Store, error) {
	opts.applyDefaults()
	if opts.Path == "" {
		return nil, fmt.Errorf("pebblestore: Path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("pebblestore: create parent dir: %w", err)
	}

	db, err := pebble.Open(opts.Path, &pebble.Options{
		Cache:        pebble.NewCache(opts.CacheSize),
		MaxOpenFiles: opts.MaxOpenFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open %s: %w", opts.Path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebblestore: get %q: %w", key, err)
	}
	// The returned slice is only valid until closer.Close().
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebblestore: close value %q: %w", key, err)
	}
	return out, true, nil
}

func (s *Store) Insert(key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebble.NoSync); err != nil {
		return fmt.Errorf("pebblestore: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	if err := s.db.Delete([]byte(key), pebble.NoSync); err != nil {
		return fmt.Errorf("pebblestore: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) ContainsKey(key string) (bool, error) {
	_, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pebblestore: contains %q: %w", key, err)
	}
	if err := closer.Close(); err != nil {
		return false, fmt.Errorf("pebblestore: close value %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) Flush() error {
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("pebblestore: flush: %w", err)
	}
	return nil
}

func (s *Store) Scan(prefix string, fn func(key string, value []byte) error) error {
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return fmt.Errorf("pebblestore: iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(string(iter.Key()), value); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("pebblestore: scan %q: %w", prefix, err)
	}
	return nil
}

// HealthCheck writes, reads back and removes a sentinel key. The blocking
// store calls run off the caller's goroutine so the ctx deadline holds.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pebblestore: health check: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.roundTrip()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("pebblestore: health check: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (s *Store) roundTrip() error {
	value := []byte("ok")
	if err := s.Insert(healthCheckKey, value); err != nil {
		return fmt.Errorf("pebblestore: health check write: %w", err)
	}
	got, found, err := s.Get(healthCheckKey)
	if err != nil {
		return fmt.Errorf("pebblestore: health check read: %w", err)
	}
	if !found || !bytes.Equal(got, value) {
		return fmt.Errorf("pebblestore: health check read/write mismatch")
	}
	_ = s.Remove(healthCheckKey)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil if no such bound exists.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
