// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store"
)

var (
	_ stash.Store = &Store{}
	_ stash.Taker = &Store{}
)

// Store wraps a nested stash.Store.
type Store struct {
	s      stash.Store
	logger *log.Logger
}

// New produces a new Store delegating to s and logging to the standard logger.
func New(s stash.Store) *Store {
	return &Store{s: s, logger: log.Default()}
}

// NewWithLogger is like New but logs to l.
func NewWithLogger(s stash.Store, l *log.Logger) *Store {
	return &Store{s: s, logger: l}
}

// Nested is the store that s delegates to.
func (s *Store) Nested() stash.Store {
	return s.s
}

func (s *Store) Push(ctx context.Context, payload []byte) (stash.ID, error) {
	id, err := s.s.Push(ctx, payload)
	if err != nil {
		s.logger.Printf("ERROR in Push (%d bytes): %s", len(payload), err)
	} else {
		s.logger.Printf("Push %s (%d bytes)", id, len(payload))
	}
	return id, err
}

func (s *Store) List(ctx context.Context) ([]stash.Entry, error) {
	entries, err := s.s.List(ctx)
	if err != nil {
		s.logger.Printf("ERROR in List: %s", err)
	} else {
		s.logger.Printf("List: %d entries", len(entries))
	}
	return entries, err
}

func (s *Store) Read(ctx context.Context, id stash.ID) ([]byte, error) {
	payload, err := s.s.Read(ctx, id)
	if err != nil {
		s.logger.Printf("ERROR in Read %s: %s", id, err)
	} else {
		s.logger.Printf("Read %s (%d bytes)", id, len(payload))
	}
	return payload, err
}

func (s *Store) Delete(ctx context.Context, id stash.ID) error {
	err := s.s.Delete(ctx, id)
	if err != nil {
		s.logger.Printf("ERROR in Delete %s: %s", id, err)
	} else {
		s.logger.Printf("Delete %s", id)
	}
	return err
}

// Take uses the nested store's Take if it has one,
// and otherwise reads and then deletes.
func (s *Store) Take(ctx context.Context, id stash.ID) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if t, ok := s.s.(stash.Taker); ok {
		payload, err = t.Take(ctx, id)
	} else {
		payload, err = s.s.Read(ctx, id)
		if err == nil {
			err = s.s.Delete(ctx, id)
		}
	}
	if err != nil {
		s.logger.Printf("ERROR in Take %s: %s", id, err)
		return nil, err
	}
	s.logger.Printf("Take %s (%d bytes)", id, len(payload))
	return payload, nil
}

func (s *Store) Clear(ctx context.Context) (*stash.ClearReport, error) {
	report, err := s.s.Clear(ctx)
	if err != nil {
		s.logger.Printf("ERROR in Clear: %s", err)
		return report, err
	}
	s.logger.Printf("Clear: removed %d", len(report.Removed))
	for id, err := range report.Failed {
		s.logger.Printf("  ERROR in Clear at %s: %s", id, err)
	}
	return report, nil
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (stash.Store, error) {
		nested, err := store.Nested(ctx, conf, "nested")
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nested), nil
	})
}
