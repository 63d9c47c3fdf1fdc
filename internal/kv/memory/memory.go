// Package memory is an in-process kv.Store, used by tests and by the
// "memory" data backend. Values are lost on exit.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes every Set fail with this error when non-nil.
	FailWrites error
	// FailReads makes every Get fail with this error when non-nil.
	FailReads error
}

func New() *Store {
	return &Store{data: map[string]string{}}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads != nil {
		return "", false, s.FailReads
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.data[key] = value
	return nil
}

// Put seeds a raw value, bypassing FailWrites.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

// Raw returns the stored value without going through Get.
func (s *Store) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}
