// Package mem implements an in-memory stash.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store"
)

var (
	_ stash.Store = &Store{}
	_ stash.Taker = &Store{}
)

// Store is a memory-based implementation of a stash.
type Store struct {
	mu      sync.Mutex
	entries map[stash.ID][]byte
}

// New produces a new, empty Store.
func New() *Store {
	return &Store{entries: make(map[stash.ID][]byte)}
}

// Push stores a copy of payload under a fresh ID.
func (s *Store) Push(_ context.Context, payload []byte) (stash.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id, err := stash.NewID(time.Now())
		if err != nil {
			return "", err
		}
		if _, ok := s.entries[id]; ok {
			continue
		}
		s.entries[id] = append([]byte{}, payload...)
		return id, nil
	}
}

// List produces the entries in the store, newest first.
func (s *Store) List(_ context.Context) ([]stash.Entry, error) {
	s.mu.Lock()
	entries := make([]stash.Entry, 0, len(s.entries))
	for id, payload := range s.entries {
		entries = append(entries, stash.Entry{
			ID:      id,
			Created: id.Time(),
			Size:    int64(len(payload)),
		})
	}
	s.mu.Unlock()

	stash.SortNewestFirst(entries)
	return entries, nil
}

// Read gets a copy of the payload with the given ID.
func (s *Store) Read(_ context.Context, id stash.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.entries[id]
	if !ok {
		return nil, stash.ErrNotFound
	}
	return append([]byte{}, payload...), nil
}

// Delete removes the entry with the given ID.
func (s *Store) Delete(_ context.Context, id stash.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return stash.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Take reads and removes the entry with the given ID.
func (s *Store) Take(_ context.Context, id stash.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.entries[id]
	if !ok {
		return nil, stash.ErrNotFound
	}
	delete(s.entries, id)
	return payload, nil
}

// Clear removes every entry in the store.
func (s *Store) Clear(ctx context.Context) (*stash.ClearReport, error) {
	return stash.ClearAll(ctx, s)
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (stash.Store, error) {
		return New(), nil
	})
}
