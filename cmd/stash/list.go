package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

func (c maincmd) list(ctx context.Context, showIDs, utc bool, args []string) error {
	if len(args) > 0 {
		return usageError{msg: "list takes no arguments"}
	}

	entries, err := c.s.List(ctx)
	if err != nil {
		return errors.Wrap(err, "listing entries")
	}

	width := len(fmt.Sprint(len(entries) - 1))
	for i, e := range entries {
		t := e.Created.Local()
		if utc {
			t = e.Created.UTC()
		}
		line := fmt.Sprintf("%*d  %s  %s", width, i, t.Format(time.RFC3339), size(e.Size))
		if showIDs {
			line += "  " + e.ID.String()
		}
		if _, err = fmt.Fprintln(c.stdout, line); err != nil {
			return errors.Wrap(err, "writing to stdout")
		}
	}
	return nil
}

func size(n int64) string {
	if n == 1 {
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", n)
}
