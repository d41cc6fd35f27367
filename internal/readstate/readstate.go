// Package readstate tracks which notifications a profile has acknowledged.
package readstate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jdholdren/herald/internal/herald"
)

// Store is the acknowledged-id set of one profile.
//
// Every mutation writes the whole set through to the persister before it
// returns. The in-memory set only changes once that write succeeds.
type Store struct {
	persist herald.ReadStateStore
	profile string

	mu    sync.Mutex
	ids   []string // insertion order, as persisted
	set   map[string]struct{}
	epoch uint64 // bumped by MarkAllUnread
}

// Load reads the persisted set. Malformed or unreadable state starts empty.
func Load(ctx context.Context, persist herald.ReadStateStore, profile string) *Store {
	s := &Store{persist: persist, profile: profile, set: map[string]struct{}{}}

	ids, err := persist.LoadAcknowledged(ctx, profile)
	if err != nil {
		slog.WarnContext(ctx, "starting with empty read state", "error", err)
		return s
	}
	s.replace(dedupe(ids))

	return s
}

func (s *Store) IsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.set[id]
	return ok
}

// Acknowledged returns a copy of the set in the order ids were acknowledged.
func (s *Store) Acknowledged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.ids)
}

// Epoch identifies the last full reset. Capture it before starting work
// whose results are merged with Merge.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.epoch
}

// MarkRead acknowledges one id. Marking an acknowledged id is a no-op.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		return nil
	}
	return s.commit(ctx, append(slices.Clone(s.ids), id))
}

// MarkAllRead makes exactly currentIDs the acknowledged set. Ids outside
// currentIDs are no longer acknowledged afterwards.
func (s *Store) MarkAllRead(ctx context.Context, currentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, dedupe(currentIDs))
}

// MarkAllUnread clears the set. Merges started before the reset are dropped.
func (s *Store) MarkAllUnread(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, []string{}); err != nil {
		return err
	}
	s.epoch++
	return nil
}

// Toggle flips one id and reports whether it is now read.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		next := slices.DeleteFunc(slices.Clone(s.ids), func(v string) bool { return v == id })
		return false, s.commit(ctx, next)
	}
	return true, s.commit(ctx, append(slices.Clone(s.ids), id))
}

// Merge adds ids in one write. It is skipped when MarkAllUnread ran after
// epoch was captured. It returns how many ids were new.
func (s *Store) Merge(ctx context.Context, ids []string, epoch uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		slog.InfoContext(ctx, "dropping auto-read merge after reset", "ids", len(ids))
		return 0, nil
	}

	next := slices.Clone(s.ids)
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := s.set[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	if len(seen) == 0 {
		return 0, nil
	}

	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	return len(seen), nil
}

// commit persists next and then swaps it in. Callers hold mu.
func (s *Store) commit(ctx context.Context, next []string) error {
	if err := s.persist.SaveAcknowledged(ctx, s.profile, next); err != nil {
		return fmt.Errorf("error saving read state: %w", err)
	}
	s.replace(next)
	return nil
}

func (s *Store) replace(ids []string) {
	s.ids = ids
	s.set = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.set[id] = struct{}{}
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
