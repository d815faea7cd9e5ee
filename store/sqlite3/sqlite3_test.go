package sqlite3

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobg/stash"
	"github.com/bobg/stash/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	testutil.Stash(ctx, t, func(t *testing.T) stash.Store {
		return openTestStore(ctx, t)
	})
}

func TestReopen(t *testing.T) {
	var (
		ctx  = context.Background()
		path = filepath.Join(t.TempDir(), "stash.db")
	)

	s1, err := Open(ctx, path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s1.Push(ctx, []byte("persistent"))
	if err != nil {
		t.Fatal(err)
	}
	if err = s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(ctx, path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, e, err := stash.Show(ctx, s2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != id {
		t.Errorf("got entry %s, want %s", e.ID, id)
	}
	if string(got) != "persistent" {
		t.Errorf("got %q, want %q", got, "persistent")
	}
}

func TestOpenOddPath(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"what?.db", "100%.db", "hash#tag.db"} {
		path := filepath.Join(t.TempDir(), name)
		s, err := Open(ctx, path, time.Second)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if _, err = s.Push(ctx, []byte(name)); err != nil {
			t.Errorf("%s: %s", name, err)
		}
		if err = s.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err = os.Stat(path); err != nil {
			t.Errorf("%s: database not at the given path: %s", name, err)
		}
	}
}

func openTestStore(ctx context.Context, t *testing.T) *Store {
	t.Helper()

	s, err := Open(ctx, filepath.Join(t.TempDir(), "stash.db"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
