// Package testutil holds a conformance suite for stash.Store implementations.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/stash"
)

// Stash runs the behavior every stash.Store must have
// against stores produced by newStore.
// Each subtest gets a fresh, empty store.
func Stash(ctx context.Context, t *testing.T, newStore func(*testing.T) stash.Store) {
	tests := []struct {
		name string
		f    func(context.Context, *testing.T, stash.Store)
	}{
		{"round_trip", RoundTrip},
		{"ordering", Ordering},
		{"pop", Pop},
		{"out_of_range", OutOfRange},
		{"not_found", NotFound},
		{"clear", Clear},
		{"concurrent_push", ConcurrentPush},
		{"concurrent_pop", ConcurrentPop},
		{"concurrent_delete", ConcurrentDelete},
		{"scenario", Scenario},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.f(ctx, t, newStore(t))
		})
	}
}

// RoundTrip checks that Show(0) after Push returns exactly the pushed bytes.
func RoundTrip(ctx context.Context, t *testing.T, s stash.Store) {
	f := func(payload []byte) bool {
		if _, err := s.Push(ctx, payload); err != nil {
			t.Logf("Error pushing: %s", err)
			return false
		}
		got, _, err := stash.Show(ctx, s, 0)
		if err != nil {
			t.Logf("Error showing: %s", err)
			return false
		}
		return bytes.Equal(got, payload)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}

	if _, err := s.Push(ctx, nil); err != nil {
		t.Fatal(err)
	}
	got, _, err := stash.Show(ctx, s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil payload", got)
	}
}

// Ordering checks that entries come back newest first.
func Ordering(ctx context.Context, t *testing.T, s stash.Store) {
	const n = 20

	var pushed []stash.ID
	for i := 0; i < n; i++ {
		id, err := s.Push(ctx, []byte(fmt.Sprintf("payload %d", i)))
		if err != nil {
			t.Fatal(err)
		}
		pushed = append(pushed, id)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []stash.ID
	for _, e := range entries {
		got = append(got, e.ID)
		if !e.Created.Equal(e.ID.Time()) {
			t.Errorf("entry %s created at %s, want %s", e.ID, e.Created, e.ID.Time())
		}
	}

	want := make([]stash.ID, 0, n)
	for i := n - 1; i >= 0; i-- {
		want = append(want, pushed[i])
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < n; i++ {
		payload, _, err := stash.Show(ctx, s, i)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("payload %d", n-1-i); string(payload) != want {
			t.Errorf("index %d: got %q, want %q", i, payload, want)
		}
	}
}

// Pop checks that Pop returns what Show would have and shifts the remaining entries.
func Pop(ctx context.Context, t *testing.T, s stash.Store) {
	for _, p := range []string{"a", "b", "c"} {
		if _, err := s.Push(ctx, []byte(p)); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"c", "b", "a"} {
		before, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		shown, _, err := stash.Show(ctx, s, 0)
		if err != nil {
			t.Fatal(err)
		}
		popped, e, err := stash.Pop(ctx, s, 0)
		if err != nil {
			t.Fatal(err)
		}
		if string(popped) != want || !bytes.Equal(popped, shown) {
			t.Errorf("popped %q, shown %q, want %q", popped, shown, want)
		}
		if e.ID != before[0].ID {
			t.Errorf("popped entry %s, want %s", e.ID, before[0].ID)
		}

		after, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(after) != len(before)-1 {
			t.Fatalf("got %d entries after pop, want %d", len(after), len(before)-1)
		}
		if len(after) > 0 && after[0].ID != before[1].ID {
			t.Errorf("new newest entry is %s, want %s", after[0].ID, before[1].ID)
		}
	}

	if _, _, err := stash.Pop(ctx, s, 0); !errors.Is(err, stash.ErrEmpty) {
		t.Errorf("got error %v, want %v", err, stash.ErrEmpty)
	}
}

// OutOfRange checks index bounds.
func OutOfRange(ctx context.Context, t *testing.T, s stash.Store) {
	_, _, err := stash.Show(ctx, s, 0)
	if !errors.Is(err, stash.ErrEmpty) || !errors.Is(err, stash.ErrOutOfRange) {
		t.Errorf("on empty store got error %v, want %v", err, stash.ErrEmpty)
	}

	if _, err = s.Push(ctx, []byte("x")); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		index   int
		wantErr error
	}{
		{index: 0},
		{index: 1, wantErr: stash.ErrOutOfRange},
		{index: 7, wantErr: stash.ErrOutOfRange},
		{index: -1, wantErr: stash.ErrOutOfRange},
	}
	for _, c := range cases {
		_, _, err := stash.Show(ctx, s, c.index)
		if c.wantErr == nil {
			if err != nil {
				t.Errorf("show %d: unexpected error %s", c.index, err)
			}
			continue
		}
		if !errors.Is(err, c.wantErr) {
			t.Errorf("show %d: got error %v, want %v", c.index, err, c.wantErr)
		}
		if errors.Is(err, stash.ErrEmpty) {
			t.Errorf("show %d: error %v should not match %v", c.index, err, stash.ErrEmpty)
		}
		if _, _, err = stash.Pop(ctx, s, c.index); !errors.Is(err, c.wantErr) {
			t.Errorf("pop %d: got error %v, want %v", c.index, err, c.wantErr)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

// NotFound checks reads and deletes of absent entries.
func NotFound(ctx context.Context, t *testing.T, s stash.Store) {
	id, err := s.Push(ctx, []byte("here today"))
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err = s.Delete(ctx, id); !errors.Is(err, stash.ErrNotFound) {
		t.Errorf("second delete: got error %v, want %v", err, stash.ErrNotFound)
	}
	if _, err = s.Read(ctx, id); !errors.Is(err, stash.ErrNotFound) {
		t.Errorf("read: got error %v, want %v", err, stash.ErrNotFound)
	}
	if _, err = s.Read(ctx, "../../etc/passwd"); !errors.Is(err, stash.ErrNotFound) {
		t.Errorf("read of bogus id: got error %v, want %v", err, stash.ErrNotFound)
	}
	if taker, ok := s.(stash.Taker); ok {
		if _, err = taker.Take(ctx, id); !errors.Is(err, stash.ErrNotFound) {
			t.Errorf("take: got error %v, want %v", err, stash.ErrNotFound)
		}
	}
}

// Clear checks that Clear empties the store and can be repeated.
func Clear(ctx context.Context, t *testing.T, s stash.Store) {
	var ids []stash.ID
	for i := 0; i < 12; i++ {
		id, err := s.Push(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append([]stash.ID{id}, ids...)
	}

	report, err := s.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = report.Err(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ids, report.Removed); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 2; i++ {
		entries, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("got %d entries after clear, want 0", len(entries))
		}

		report, err = s.Clear(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err = report.Err(); err != nil {
			t.Fatal(err)
		}
		if len(report.Removed) != 0 {
			t.Errorf("clear of empty store removed %d entries", len(report.Removed))
		}
	}
}

// ConcurrentPush checks that simultaneous pushes all land, with distinct IDs.
func ConcurrentPush(ctx context.Context, t *testing.T, s stash.Store) {
	const n = 50

	var (
		mu  sync.Mutex
		ids = make(map[stash.ID]string)
		g   errgroup.Group
	)
	for i := 0; i < n; i++ {
		payload := fmt.Sprintf("concurrent %d", i)
		g.Go(func() error {
			id, err := s.Push(ctx, []byte(payload))
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if other, ok := ids[id]; ok {
				return fmt.Errorf("id %s assigned to both %q and %q", id, other, payload)
			}
			ids[id] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("got %d entries, want %d", len(entries), n)
	}
	for _, e := range entries {
		want, ok := ids[e.ID]
		if !ok {
			t.Fatalf("unexpected entry %s", e.ID)
		}
		got, err := s.Read(ctx, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("entry %s: got %q, want %q", e.ID, got, want)
		}
	}
}

// ConcurrentPop checks that of several simultaneous pops of a single entry,
// exactly one gets it.
func ConcurrentPop(ctx context.Context, t *testing.T, s stash.Store) {
	const n = 10

	if _, err := s.Push(ctx, []byte("only one")); err != nil {
		t.Fatal(err)
	}

	var (
		mu   sync.Mutex
		wins int
		g    errgroup.Group
	)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			payload, _, err := stash.Pop(ctx, s, 0)
			if errors.Is(err, stash.ErrNotFound) || errors.Is(err, stash.ErrEmpty) {
				return nil
			}
			if err != nil {
				return err
			}
			if string(payload) != "only one" {
				return fmt.Errorf("got %q, want %q", payload, "only one")
			}
			mu.Lock()
			wins++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if wins != 1 {
		t.Errorf("got %d successful pops, want 1", wins)
	}
}

// ConcurrentDelete checks that of several simultaneous deletes of one entry,
// exactly one succeeds and the rest get ErrNotFound.
func ConcurrentDelete(ctx context.Context, t *testing.T, s stash.Store) {
	const n = 10

	id, err := s.Push(ctx, []byte("doomed"))
	if err != nil {
		t.Fatal(err)
	}

	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			errs[i] = s.Delete(ctx, id)
			return nil
		})
	}
	g.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, stash.ErrNotFound):
		default:
			t.Errorf("unexpected error %s", err)
		}
	}
	if ok != 1 {
		t.Errorf("got %d successful deletes, want 1", ok)
	}
}

// Scenario walks through a typical session.
func Scenario(ctx context.Context, t *testing.T, s stash.Store) {
	first, err := s.Push(ctx, []byte("First"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Push(ctx, []byte("Second"))
	if err != nil {
		t.Fatal(err)
	}

	checkIDs(ctx, t, s, second, first)
	checkShow(ctx, t, s, 0, "Second")
	checkShow(ctx, t, s, 1, "First")

	popped, e, err := stash.Pop(ctx, s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(popped) != "Second" || e.ID != second {
		t.Errorf("popped %q (%s), want %q (%s)", popped, e.ID, "Second", second)
	}

	checkIDs(ctx, t, s, first)
	checkShow(ctx, t, s, 0, "First")

	report, err := s.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = report.Err(); err != nil {
		t.Fatal(err)
	}
	checkIDs(ctx, t, s)
}

func checkIDs(ctx context.Context, t *testing.T, s stash.Getter, want ...stash.ID) {
	t.Helper()

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := []stash.ID{}
	for _, e := range entries {
		got = append(got, e.ID)
	}
	if want == nil {
		want = []stash.ID{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func checkShow(ctx context.Context, t *testing.T, s stash.Getter, index int, want string) {
	t.Helper()

	got, _, err := stash.Show(ctx, s, index)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("show %d: got %q, want %q", index, got, want)
	}
}
