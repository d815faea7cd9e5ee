package gc_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/bobg/stash"
	. "github.com/bobg/stash/gc"
	"github.com/bobg/stash/store/mem"
)

func TestGC(t *testing.T) {
	cases := []struct {
		name string
		keep func(ids []stash.ID) Keep
		want func(ids []stash.ID) []stash.ID // survivors, newest first
	}{
		{
			name: "newest_3",
			keep: func([]stash.ID) Keep { return Newest(3) },
			want: func(ids []stash.ID) []stash.ID { return reversed(ids[7:]) },
		},
		{
			name: "newest_0",
			keep: func([]stash.ID) Keep { return Newest(0) },
			want: func([]stash.ID) []stash.ID { return nil },
		},
		{
			name: "newest_all",
			keep: func([]stash.ID) Keep { return Newest(100) },
			want: reversed,
		},
		{
			name: "since",
			keep: func(ids []stash.ID) Keep { return Since(ids[4].Time()) },
			want: func(ids []stash.ID) []stash.ID { return reversed(ids[4:]) },
		},
		{
			name: "any",
			keep: func(ids []stash.ID) Keep { return Any(Newest(2), Since(ids[6].Time())) },
			want: func(ids []stash.ID) []stash.ID { return reversed(ids[6:]) },
		},
		{
			name: "any_empty",
			keep: func([]stash.ID) Keep { return Any() },
			want: func([]stash.ID) []stash.ID { return nil },
		},
		{
			name: "since_future",
			keep: func([]stash.ID) Keep { return Since(time.Now().Add(time.Hour)) },
			want: func([]stash.ID) []stash.ID { return nil },
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			s := mem.New()

			// Oldest first.
			var ids []stash.ID
			for i := 0; i < 10; i++ {
				id, err := s.Push(ctx, []byte(fmt.Sprintf("entry %d", i)))
				if err != nil {
					t.Fatal(err)
				}
				ids = append(ids, id)
				time.Sleep(time.Millisecond)
			}

			report, err := Run(ctx, s, c.keep(ids))
			if err != nil {
				t.Fatal(err)
			}
			if err = report.Err(); err != nil {
				t.Fatal(err)
			}

			entries, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			var got []stash.ID
			for _, e := range entries {
				got = append(got, e.ID)
			}
			want := c.want(ids)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if len(report.Removed)+len(want) != len(ids) {
				t.Errorf("removed %d, kept %d, want total %d", len(report.Removed), len(want), len(ids))
			}
		})
	}
}

func TestKeepError(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	if _, err := s.Push(ctx, []byte("x")); err != nil {
		t.Fatal(err)
	}

	errBoom := errors.New("boom")
	_, err := Run(ctx, s, KeepFunc(func(context.Context, int, stash.Entry) (bool, error) {
		return false, errBoom
	}))
	if !errors.Is(err, errBoom) {
		t.Errorf("got error %v, want %v", err, errBoom)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func reversed(ids []stash.ID) []stash.ID {
	var out []stash.ID
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, ids[i])
	}
	return out
}
