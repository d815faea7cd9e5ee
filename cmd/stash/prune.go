package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/gc"
)

// Age beyond which leftovers of interrupted pushes and pops are swept.
const sweepAge = time.Hour

// sweeper is a store that can remove leftovers of interrupted operations.
type sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

func (c maincmd) prune(ctx context.Context, keep int, maxAge time.Duration, args []string) error {
	if len(args) > 0 {
		return usageError{msg: "prune takes no arguments"}
	}
	if keep < 0 && maxAge <= 0 {
		return usageError{msg: "prune needs -keep or -age"}
	}

	var keeps []gc.Keep
	if keep >= 0 {
		keeps = append(keeps, gc.Newest(keep))
	}
	if maxAge > 0 {
		keeps = append(keeps, gc.Since(time.Now().Add(-maxAge)))
	}

	report, err := gc.Run(ctx, c.s, gc.Any(keeps...))
	if err != nil {
		return errors.Wrap(err, "pruning")
	}
	if err = c.sweep(); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return errors.Wrapf(report.Err(), "could not remove %d of %d entries", len(report.Failed), len(report.Failed)+len(report.Removed))
	}
	return nil
}

func (c maincmd) sweep() error {
	s := c.s
	if n, ok := s.(interface{ Nested() stash.Store }); ok {
		s = n.Nested()
	}
	sw, ok := s.(sweeper)
	if !ok {
		return nil
	}
	_, err := sw.Sweep(sweepAge)
	return errors.Wrap(err, "sweeping leftovers")
}
