package main

import (
	"context"

	"github.com/pkg/errors"
)

func (c maincmd) clear(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return usageError{msg: "clear takes no arguments"}
	}

	report, err := c.s.Clear(ctx)
	if err != nil {
		return errors.Wrap(err, "clearing")
	}
	if err = c.sweep(); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return errors.Wrapf(report.Err(), "could not remove %d of %d entries", len(report.Failed), len(report.Failed)+len(report.Removed))
	}
	return nil
}
