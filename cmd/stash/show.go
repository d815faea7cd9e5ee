package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/stash"
)

func (c maincmd) show(ctx context.Context, args []string) error {
	index, err := parseIndex(args)
	if err != nil {
		return err
	}
	payload, _, err := stash.Show(ctx, c.s, index)
	if err != nil {
		return errors.Wrapf(err, "showing entry %d", index)
	}
	_, err = c.stdout.Write(payload)
	return errors.Wrap(err, "writing payload to stdout")
}

func (c maincmd) pop(ctx context.Context, args []string) error {
	index, err := parseIndex(args)
	if err != nil {
		return err
	}
	payload, _, err := stash.Pop(ctx, c.s, index)
	if err != nil {
		return errors.Wrapf(err, "popping entry %d", index)
	}
	_, err = c.stdout.Write(payload)
	return errors.Wrap(err, "writing payload to stdout")
}

func (c maincmd) delete(ctx context.Context, args []string) error {
	index, err := parseIndex(args)
	if err != nil {
		return err
	}
	_, err = stash.Drop(ctx, c.s, index)
	return errors.Wrapf(err, "deleting entry %d", index)
}
