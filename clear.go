package stash

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ClearReport is the outcome of a Clear.
type ClearReport struct {
	// Removed lists the entries that were removed,
	// in the order they were given (newest first for Clear).
	// It includes entries that some other caller removed concurrently.
	Removed []ID

	// Failed maps each entry that could not be removed to the reason.
	// It is nil when every removal succeeded.
	Failed MultiErr
}

// Err is nil if every entry was removed,
// and r.Failed otherwise.
func (r *ClearReport) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	return r.Failed
}

// MultiErr maps individual entries to errors encountered operating on them.
type MultiErr map[ID]error

// Error implements the error interface.
func (e MultiErr) Error() string {
	ids := make([]ID, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, fmt.Sprintf("%s: %s", id, e[id]))
	}
	return "error(s): " + strings.Join(strs, "; ")
}

// Number of concurrent deletions performed by DeleteEach.
const deleteParallelism = 8

// ClearAll is a helper for implementing Store.Clear.
// It lists the entries in s and removes them all with DeleteEach.
//
// The error return is for failing to list s.
// Failures to delete individual entries are in the report.
func ClearAll(ctx context.Context, s Store) (*ClearReport, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}
	return DeleteEach(ctx, s, entries), nil
}

// DeleteEach deletes each of the given entries from s independently,
// several at a time.
// A failure on one entry does not prevent the deletion of the others.
// An entry that is already gone when its turn comes
// counts as removed.
func DeleteEach(ctx context.Context, s Store, entries []Entry) *ClearReport {
	var (
		mu      sync.Mutex
		removed = make(map[ID]bool)
		report  = new(ClearReport)
		g       errgroup.Group
	)
	g.SetLimit(deleteParallelism)

	for _, e := range entries {
		id := e.ID
		g.Go(func() error {
			err := s.Delete(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			if err != nil && !errors.Is(err, ErrNotFound) {
				if report.Failed == nil {
					report.Failed = make(MultiErr)
				}
				report.Failed[id] = err
				return nil
			}
			removed[id] = true
			return nil
		})
	}
	_ = g.Wait() // goroutines record failures instead of returning them

	for _, e := range entries {
		if removed[e.ID] {
			report.Removed = append(report.Removed, e.ID)
		}
	}
	return report
}
