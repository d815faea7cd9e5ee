package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store/file"
	"github.com/bobg/stash/store/mem"
	"github.com/bobg/stash/store/sqlite3"
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	s      stash.Store
	stdout *bytes.Buffer
}

func newHarness(t *testing.T, s stash.Store) *harness {
	return &harness{t: t, ctx: context.Background(), s: s, stdout: new(bytes.Buffer)}
}

// run runs one subcommand with the given input and returns its output and exit code.
func (h *harness) run(stdin string, args ...string) (string, int) {
	h.t.Helper()

	h.stdout.Reset()
	c := maincmd{
		s:      h.s,
		stdin:  strings.NewReader(stdin),
		stdout: h.stdout,
		stderr: new(bytes.Buffer),
	}
	code := c.run(h.ctx, args)
	return h.stdout.String(), code
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()

	out, code := h.run(stdin, args...)
	if code != 0 {
		h.t.Fatalf("%v: exit code %d", args, code)
	}
	return out
}

func TestSession(t *testing.T) {
	h := newHarness(t, mem.New())

	h.mustRun("First", "push")
	h.mustRun("Second", "push")

	lines := strings.Split(strings.TrimSpace(h.mustRun("", "list")), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines from list, want 2:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	for i, want := range []string{"0  ", "1  "} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("list line %d is %q, want prefix %q", i, lines[i], want)
		}
	}
	if !strings.HasSuffix(lines[0], "6 bytes") || !strings.HasSuffix(lines[1], "5 bytes") {
		t.Errorf("unexpected sizes in list output:\n%s", strings.Join(lines, "\n"))
	}

	cases := []struct {
		args []string
		want string
	}{
		{args: []string{"show"}, want: "Second"},
		{args: []string{"show", "0"}, want: "Second"},
		{args: []string{"show", "1"}, want: "First"},
		{args: []string{"pop"}, want: "Second"},
		{args: []string{"show"}, want: "First"},
	}
	for _, c := range cases {
		if got := h.mustRun("", c.args...); got != c.want {
			t.Errorf("%v: got %q, want %q", c.args, got, c.want)
		}
	}

	h.mustRun("", "clear")
	if got := h.mustRun("", "list"); got != "" {
		t.Errorf("got list output %q after clear, want nothing", got)
	}
	h.mustRun("", "clear")
}

func TestExitCodes(t *testing.T) {
	h := newHarness(t, mem.New())

	cases := []struct {
		args []string
		want int
	}{
		{args: []string{"show"}, want: exitOutOfRange},
		{args: []string{"pop", "0"}, want: exitOutOfRange},
		{args: []string{"delete"}, want: exitOutOfRange},
		{args: []string{"show", "-1"}, want: exitUsage},
		{args: []string{"show", "x"}, want: exitUsage},
		{args: []string{"show", "0", "1"}, want: exitUsage},
		{args: []string{"list", "extra"}, want: exitUsage},
		{args: []string{"frobnicate"}, want: exitUsage},
		{args: []string{"list"}, want: 0},
		{args: []string{"clear"}, want: 0},
	}
	for _, c := range cases {
		if _, got := h.run("", c.args...); got != c.want {
			t.Errorf("%v: got exit code %d, want %d", c.args, got, c.want)
		}
	}

	h.mustRun("only", "push")
	if _, got := h.run("", "show", "1"); got != exitOutOfRange {
		t.Errorf("show 1: got exit code %d, want %d", got, exitOutOfRange)
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(t, mem.New())

	for _, p := range []string{"a", "b", "c"} {
		h.mustRun(p, "push")
	}
	if out := h.mustRun("", "delete", "1"); out != "" {
		t.Errorf("delete printed %q", out)
	}

	var got []string
	for {
		out, code := h.run("", "pop")
		if code == exitOutOfRange {
			break
		}
		if code != 0 {
			t.Fatalf("pop: exit code %d", code)
		}
		got = append(got, out)
	}
	if diff := cmp.Diff([]string{"c", "a"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPushBinary(t *testing.T) {
	h := newHarness(t, file.New(t.TempDir()))

	payload := string([]byte{0, 1, 2, 0xff, '\n', 0})
	id := strings.TrimSpace(h.mustRun(payload, "push", "-id"))
	if _, err := stash.ParseID(id); err != nil {
		t.Fatal(err)
	}
	if got := h.mustRun("", "show"); got != payload {
		t.Errorf("got %q, want %q", got, payload)
	}

	h.mustRun("", "push")
	if got := h.mustRun("", "show"); got != "" {
		t.Errorf("got %q, want empty payload", got)
	}

	out := h.mustRun("", "list", "-id", "-utc")
	if !strings.Contains(out, id) {
		t.Errorf("list -id output does not contain %s:\n%s", id, out)
	}
}

func TestStoreFromConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Setenv(stash.DirEnv, filepath.Join(dir, "default"))
	s, err := storeFromConfig(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := s.(*file.Store)
	if !ok {
		t.Fatalf("got %T, want *file.Store", s)
	}
	if fs.Root() != filepath.Join(dir, "default") {
		t.Errorf("got root %s, want %s", fs.Root(), filepath.Join(dir, "default"))
	}

	confs := []struct {
		conf map[string]interface{}
		want interface{}
	}{
		{
			conf: map[string]interface{}{"type": "file", "root": filepath.Join(dir, "files")},
			want: &file.Store{},
		},
		{
			conf: map[string]interface{}{"type": "sqlite3", "file": filepath.Join(dir, "stash.db")},
			want: &sqlite3.Store{},
		},
		{
			conf: map[string]interface{}{"type": "mem"},
			want: &mem.Store{},
		},
	}
	for i, c := range confs {
		filename := filepath.Join(dir, "conf.json")
		b, err := json.Marshal(c.conf)
		if err != nil {
			t.Fatal(err)
		}
		if err = os.WriteFile(filename, b, 0600); err != nil {
			t.Fatal(err)
		}

		s, err := storeFromConfig(ctx, filename)
		if err != nil {
			t.Fatalf("case %d: %s", i, err)
		}
		if got, want := fmt.Sprintf("%T", s), fmt.Sprintf("%T", c.want); got != want {
			t.Errorf("case %d: got %s, want %s", i, got, want)
		}

		h := newHarness(t, s)
		h.mustRun("configured", "push")
		if got := h.mustRun("", "pop"); got != "configured" {
			t.Errorf("case %d: got %q, want %q", i, got, "configured")
		}
		if closer, ok := s.(interface{ Close() error }); ok {
			closer.Close()
		}
	}

	filename := filepath.Join(dir, "bad.json")
	if err = os.WriteFile(filename, []byte(`{"root": "/tmp"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err = storeFromConfig(ctx, filename); err == nil {
		t.Error("got no error for config without type")
	}
}

func TestPrune(t *testing.T) {
	h := newHarness(t, mem.New())

	for _, p := range []string{"a", "b", "c", "d", "e"} {
		h.mustRun(p, "push")
	}

	if _, code := h.run("", "prune"); code != exitUsage {
		t.Errorf("prune with no flags: got exit code %d, want %d", code, exitUsage)
	}

	h.mustRun("", "prune", "-keep", "2")

	var got []string
	for {
		out, code := h.run("", "pop")
		if code != 0 {
			break
		}
		got = append(got, out)
	}
	if diff := cmp.Diff([]string{"e", "d"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	h.mustRun("recent", "push")
	h.mustRun("", "prune", "-age", "1h")
	if got := h.mustRun("", "show"); got != "recent" {
		t.Errorf("got %q, want %q", got, "recent")
	}
}

func TestImplicitPush(t *testing.T) {
	h := newHarness(t, mem.New())

	if out := h.mustRun("piped"); out != "" {
		t.Errorf("push printed %q", out)
	}
	if got := h.mustRun("", "show"); got != "piped" {
		t.Errorf("got %q, want %q", got, "piped")
	}

	var stderr bytes.Buffer
	c := maincmd{
		s:           h.s,
		stdin:       strings.NewReader("typed"),
		stdout:      new(bytes.Buffer),
		stderr:      &stderr,
		interactive: true,
	}
	if code := c.run(h.ctx, nil); code != exitUsage {
		t.Errorf("got exit code %d on a terminal, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("no usage message on stderr:\n%s", stderr.String())
	}
	entries, err := h.s.List(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestPushIOError(t *testing.T) {
	// A regular file where the store directory should be.
	root := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(root, nil, 0600); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, file.New(root))

	if _, code := h.run("lost", "push"); code != exitErr {
		t.Errorf("got exit code %d, want %d", code, exitErr)
	}
	if _, code := h.run("lost"); code != exitErr {
		t.Errorf("implicit push: got exit code %d, want %d", code, exitErr)
	}
}

func TestBadFlag(t *testing.T) {
	h := newHarness(t, mem.New())

	for _, args := range [][]string{
		{"list", "-bogus"},
		{"prune", "-keep", "many"},
		{"push", "-id=maybe"},
	} {
		if _, code := h.run("", args...); code != exitUsage {
			t.Errorf("%v: got exit code %d, want %d", args, code, exitUsage)
		}
	}
}
