// internal/storage/storagetest/store.go

// Package storagetest provides an in-memory Store for tests.
package storagetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eventhub-tools/ehreader/internal/storage"
)

// Store is a map-backed storage.Store. Safe for concurrent use.
// Error fields let tests inject failures per operation.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte

	InsertErr      error
	GetErr         error
	ContainsKeyErr error
	FlushErr       error

	FlushCalls int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: map[string][]byte{}}
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, false, s.GetErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Insert(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) ContainsKey(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ContainsKeyErr != nil {
		return false, s.ContainsKeyErr
	}
	_, ok := s.data[key]
	return ok, nil
}

func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FlushCalls++
	return s.FlushErr
}

func (s *Store) Scan(prefix string, fn func(key string, value []byte) error) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		v := make([]byte, len(s.data[k]))
		copy(v, s.data[k])
		values[i] = v
	}
	s.mu.Unlock()

	for i, k := range keys {
		if err := fn(k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

var _ storage.Store = (*Store)(nil)
