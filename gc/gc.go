// Package gc prunes old entries from a stash.
package gc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/stash"
)

// Run removes from s every entry that k does not keep.
// Like Clear,
// it removes entries independently
// and reports the ones it could not remove.
func Run(ctx context.Context, s stash.Store, k Keep) (*stash.ClearReport, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}

	var doomed []stash.Entry
	for i, e := range entries {
		keep, err := k.Contains(ctx, i, e)
		if err != nil {
			return nil, errors.Wrapf(err, "checking %s", e.ID)
		}
		if !keep {
			doomed = append(doomed, e)
		}
	}
	return stash.DeleteEach(ctx, s, doomed), nil
}
