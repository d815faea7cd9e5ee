package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

func (c maincmd) push(ctx context.Context, printID bool, args []string) error {
	if len(args) > 0 {
		return usageError{msg: "push takes no arguments"}
	}

	// All input must be in hand before anything is stored.
	payload, err := io.ReadAll(c.stdin)
	if err != nil {
		return errors.Wrap(err, "reading stdin")
	}

	id, err := c.s.Push(ctx, payload)
	if err != nil {
		return errors.Wrap(err, "storing payload")
	}

	if printID {
		fmt.Fprintln(c.stdout, id)
	}
	return nil
}
