package stash

import (
	"context"

	"github.com/pkg/errors"
)

// Resolve finds the entry at the given recency index in g.
// Index 0 is the newest entry.
// The order is computed from a fresh List on every call.
//
// The error matches ErrEmpty if g has no entries,
// and ErrOutOfRange if index is negative or not less than the number of entries.
func Resolve(ctx context.Context, g Getter, index int) (Entry, error) {
	entries, err := g.List(ctx)
	if err != nil {
		return Entry{}, errors.Wrap(err, "listing entries")
	}
	if index < 0 || index >= len(entries) {
		return Entry{}, &IndexError{Index: index, Count: len(entries)}
	}
	return entries[index], nil
}

// Show gets the payload at the given recency index.
// If the entry disappears between resolution and reading,
// the error is ErrNotFound.
func Show(ctx context.Context, g Getter, index int) ([]byte, Entry, error) {
	e, err := Resolve(ctx, g, index)
	if err != nil {
		return nil, Entry{}, err
	}
	payload, err := g.Read(ctx, e.ID)
	if err != nil {
		return nil, e, errors.Wrapf(err, "reading %s", e.ID)
	}
	return payload, e, nil
}

// Pop gets the payload at the given recency index and removes its entry.
// If s is a Taker,
// the read and the removal are a single atomic step.
// Otherwise the payload is read first and then the entry deleted,
// and a Pop that loses a race with another removal of the same entry
// returns ErrNotFound and no payload.
func Pop(ctx context.Context, s Store, index int) ([]byte, Entry, error) {
	e, err := Resolve(ctx, s, index)
	if err != nil {
		return nil, Entry{}, err
	}
	if t, ok := s.(Taker); ok {
		payload, err := t.Take(ctx, e.ID)
		if err != nil {
			return nil, e, errors.Wrapf(err, "taking %s", e.ID)
		}
		return payload, e, nil
	}

	payload, err := s.Read(ctx, e.ID)
	if err != nil {
		return nil, e, errors.Wrapf(err, "reading %s", e.ID)
	}
	if err = s.Delete(ctx, e.ID); err != nil {
		return nil, e, errors.Wrapf(err, "deleting %s", e.ID)
	}
	return payload, e, nil
}

// Drop removes the entry at the given recency index without reading it.
func Drop(ctx context.Context, s Store, index int) (Entry, error) {
	e, err := Resolve(ctx, s, index)
	if err != nil {
		return Entry{}, err
	}
	return e, errors.Wrapf(s.Delete(ctx, e.ID), "deleting %s", e.ID)
}
