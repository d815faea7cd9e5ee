// Package file implements a stash as a directory with one file per entry.
//
// Each file is named by its entry's ID,
// so a lexical listing of the directory is in chronological order,
// and holds the raw payload bytes.
// Files whose names begin with a dot are in-progress pushes or pops
// and are never listed.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store"
)

var (
	_ stash.Store = &Store{}
	_ stash.Taker = &Store{}
)

const (
	dirMode = 0700

	pushPrefix = ".push-"
	takePrefix = ".take-"

	// Digits in the claim time of a claim name.
	tsWidth = 19

	// Maximum number of fresh IDs Push will try
	// before giving up on finding an unused one.
	maxPushTries = 10
)

// Store is a file-based implementation of a stash.
type Store struct {
	root string
}

// New produces a new Store keeping its entries in the directory `root`.
// The directory is created when first needed.
func New(root string) *Store {
	return &Store{root: root}
}

// Root is the directory in which s keeps its entries.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(id stash.ID) (string, bool) {
	if !id.Valid() {
		return "", false
	}
	return filepath.Join(s.root, string(id)), true
}

// Push stores a payload under a fresh ID.
//
// The payload is written to a hidden temporary file first,
// which is then hard-linked under its final name.
// Linking fails if the name is taken,
// so concurrent pushes can never overwrite one another,
// and readers never see a partial file.
func (s *Store) Push(_ context.Context, payload []byte) (stash.ID, error) {
	err := os.MkdirAll(s.root, dirMode)
	if err != nil {
		return "", errors.Wrapf(err, "ensuring path %s exists", s.root)
	}

	tmpname, err := s.writeTemp(payload)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpname) // ignore error; Sweep collects leftovers

	for i := 0; i < maxPushTries; i++ {
		id, err := stash.NewID(time.Now())
		if err != nil {
			return "", err
		}
		path := filepath.Join(s.root, string(id))
		err = os.Link(tmpname, path)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "publishing %s", path)
		}
		return id, nil
	}
	return "", errors.Errorf("no unused id after %d tries", maxPushTries)
}

// The temp file is created with mode 0600,
// which the published link shares.
func (s *Store) writeTemp(payload []byte) (string, error) {
	f, err := os.CreateTemp(s.root, pushPrefix+"*")
	if err != nil {
		return "", errors.Wrapf(err, "creating temp file in %s", s.root)
	}
	name := f.Name()

	if err = writeAndClose(f, payload); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func writeAndClose(f *os.File, payload []byte) error {
	name := f.Name()
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing data to %s", name)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "syncing %s", name)
	}
	return errors.Wrapf(f.Close(), "closing %s", name)
}

// List produces the entries in the store, newest first.
// Entries removed while the directory is being read are skipped.
func (s *Store) List(_ context.Context) ([]stash.Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", s.root)
	}

	entries := make([]stash.Entry, 0, len(dirents))
	for _, dirent := range dirents {
		name := dirent.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		id, err := stash.ParseID(name)
		if err != nil {
			continue
		}
		info, err := dirent.Info()
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "getting info for %s", name)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, stash.Entry{
			ID:      id,
			Created: id.Time(),
			Size:    info.Size(),
		})
	}

	stash.SortNewestFirst(entries)
	return entries, nil
}

// Read gets the payload of the entry with the given ID.
func (s *Store) Read(_ context.Context, id stash.ID) ([]byte, error) {
	path, ok := s.path(id)
	if !ok {
		return nil, stash.ErrNotFound
	}
	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, stash.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// Delete removes the entry with the given ID.
func (s *Store) Delete(_ context.Context, id stash.ID) error {
	path, ok := s.path(id)
	if !ok {
		return stash.ErrNotFound
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return stash.ErrNotFound
	}
	return errors.Wrapf(err, "removing %s", path)
}

// Take reads and removes the entry with the given ID.
// The entry is first renamed to a hidden claim name.
// Only one of several concurrent renames of the same file can succeed,
// so only one caller gets the payload.
func (s *Store) Take(_ context.Context, id stash.ID) ([]byte, error) {
	claim, err := s.claim(id, time.Now())
	if err != nil {
		return nil, err
	}
	return s.consume(id, claim)
}

// claim renames the entry to a hidden name recording the claim time.
// Sweep ages claims by that time, not by the file's mtime,
// which rename leaves at the time of the push.
func (s *Store) claim(id stash.ID, now time.Time) (string, error) {
	path, ok := s.path(id)
	if !ok {
		return "", stash.ErrNotFound
	}

	claim := filepath.Join(s.root, fmt.Sprintf("%s%0*d-%s-%s", takePrefix, tsWidth, now.UnixNano(), id, uuid.NewString()))
	err := os.Rename(path, claim)
	if os.IsNotExist(err) {
		return "", stash.ErrNotFound
	}
	return claim, errors.Wrapf(err, "claiming %s", path)
}

func (s *Store) consume(id stash.ID, claim string) ([]byte, error) {
	payload, err := os.ReadFile(claim)
	if os.IsNotExist(err) {
		return nil, stash.ErrNotFound
	}
	if err != nil {
		// Put the entry back where it was so it is not lost.
		if path, ok := s.path(id); ok {
			if linkErr := os.Link(claim, path); linkErr == nil {
				os.Remove(claim)
			}
		}
		return nil, errors.Wrapf(err, "reading %s", claim)
	}
	if payload == nil {
		payload = []byte{}
	}
	err = os.Remove(claim)
	if os.IsNotExist(err) {
		err = nil
	}
	return payload, errors.Wrapf(err, "removing %s", claim)
}

// claimTime parses the time recorded in a claim name.
func claimTime(name string) (time.Time, bool) {
	rest := strings.TrimPrefix(name, takePrefix)
	if len(rest) <= tsWidth || rest[tsWidth] != '-' {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(rest[:tsWidth], 10, 64)
	if err != nil || nanos < 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// Sweep removes hidden files older than maxAge.
// These are left behind by pushes and pops that were interrupted.
// It returns the number of files removed.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	dirents, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "reading dir %s", s.root)
	}

	var (
		cutoff = time.Now().Add(-maxAge)
		n      int
	)
	for _, dirent := range dirents {
		name := dirent.Name()
		if !strings.HasPrefix(name, pushPrefix) && !strings.HasPrefix(name, takePrefix) {
			continue
		}
		info, err := dirent.Info()
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return n, errors.Wrapf(err, "getting info for %s", name)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		age := info.ModTime()
		if strings.HasPrefix(name, takePrefix) {
			if t, ok := claimTime(name); ok {
				age = t
			}
		}
		if age.After(cutoff) {
			continue
		}
		err = os.Remove(filepath.Join(s.root, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return n, errors.Wrapf(err, "removing %s", name)
		}
		n++
	}
	return n, nil
}

// Clear removes every entry in the store.
func (s *Store) Clear(ctx context.Context) (*stash.ClearReport, error) {
	return stash.ClearAll(ctx, s)
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (stash.Store, error) {
		root, ok := conf["root"].(string)
		if !ok || root == "" {
			var err error
			root, err = stash.DataDir()
			if err != nil {
				return nil, errors.Wrap(err, `no "root" parameter and no default`)
			}
		}
		return New(root), nil
	})
}
