// Package memstore is an in-memory preference backend. It is used when no
// database is configured and throughout the tests.
package memstore

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable is returned by every call once the store has been broken with Fail.
var ErrUnavailable = errors.New("store unavailable")

type key struct {
	profile string
	name    string
}

type Store struct {
	mu     sync.RWMutex
	values map[key]string
	failed bool
}

func New() *Store {
	return &Store{values: map[key]string{}}
}

func (s *Store) Value(_ context.Context, profile, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failed {
		return "", false, ErrUnavailable
	}
	v, ok := s.values[key{profile, name}]
	return v, ok, nil
}

func (s *Store) SetValue(_ context.Context, profile, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return ErrUnavailable
	}
	s.values[key{profile, name}] = value
	return nil
}

// Fail makes every following call return ErrUnavailable, or recovers the store
// when passed false.
func (s *Store) Fail(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed = failed
}
