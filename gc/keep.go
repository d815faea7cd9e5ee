package gc

import (
	"context"
	"time"

	"github.com/bobg/stash"
)

// Keep is a set of entries to protect from pruning.
type Keep interface {
	// Contains tells whether the entry at the given recency index is in the Keep.
	Contains(ctx context.Context, index int, e stash.Entry) (bool, error)
}

// KeepFunc adapts an ordinary function to the Keep interface.
type KeepFunc func(context.Context, int, stash.Entry) (bool, error)

// Contains implements Keep.
func (f KeepFunc) Contains(ctx context.Context, index int, e stash.Entry) (bool, error) {
	return f(ctx, index, e)
}

// Newest keeps the n most recent entries.
func Newest(n int) Keep {
	return KeepFunc(func(_ context.Context, index int, _ stash.Entry) (bool, error) {
		return index < n, nil
	})
}

// Since keeps entries created at or after t.
func Since(t time.Time) Keep {
	return KeepFunc(func(_ context.Context, _ int, e stash.Entry) (bool, error) {
		return !e.Created.Before(t), nil
	})
}

// Any keeps entries that any of ks keeps.
// With no arguments it keeps nothing.
func Any(ks ...Keep) Keep {
	return KeepFunc(func(ctx context.Context, index int, e stash.Entry) (bool, error) {
		for _, k := range ks {
			ok, err := k.Contains(ctx, index, e)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	})
}
