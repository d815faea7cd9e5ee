// Package sqlite3 implements a stash in a SQLite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store"
)

var (
	_ stash.Store = &Store{}
	_ stash.Taker = &Store{}
)

// Store is a Sqlite-based stash.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `entries` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY NOT NULL,
  payload BLOB NOT NULL
);
`

// Maximum number of fresh IDs Push will try
// before giving up on finding an unused one.
const maxPushTries = 10

// New produces a new Store using `db` for storage.
// It expects to create table `entries`,
// or for that table already to exist with the correct schema.
// (See constant Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Open opens (creating if necessary) the database file at path
// and produces a Store using it.
// Other processes may use the same file concurrently;
// writers wait on one another for up to the given busy timeout.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*Store, error) {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	q.Set("_journal_mode", "WAL")
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Push stores a payload under a fresh ID.
func (s *Store) Push(ctx context.Context, payload []byte) (stash.ID, error) {
	const q = `INSERT INTO entries (id, payload) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if payload == nil {
		payload = []byte{}
	}

	for i := 0; i < maxPushTries; i++ {
		id, err := stash.NewID(time.Now())
		if err != nil {
			return "", err
		}

		res, err := s.db.ExecContext(ctx, q, string(id), payload)
		if err != nil {
			return "", errors.Wrap(err, "inserting entry")
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return "", errors.Wrap(err, "counting affected rows")
		}
		if aff > 0 {
			return id, nil
		}
	}
	return "", errors.Errorf("no unused id after %d tries", maxPushTries)
}

// List produces the entries in the store, newest first.
func (s *Store) List(ctx context.Context) ([]stash.Entry, error) {
	const q = `SELECT id, length(payload) FROM entries ORDER BY id DESC`

	var entries []stash.Entry
	err := sqlutil.ForQueryRows(ctx, s.db, q, func(idstr string, size int64) error {
		id, err := stash.ParseID(idstr)
		if err != nil {
			return err
		}
		entries = append(entries, stash.Entry{
			ID:      id,
			Created: id.Time(),
			Size:    size,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	return entries, nil
}

// Read gets the payload of the entry with the given ID.
func (s *Store) Read(ctx context.Context, id stash.ID) ([]byte, error) {
	const q = `SELECT payload FROM entries WHERE id = $1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, q, string(id)).Scan(&payload)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, stash.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", id)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// Delete removes the entry with the given ID.
func (s *Store) Delete(ctx context.Context, id stash.ID) error {
	const q = `DELETE FROM entries WHERE id = $1`

	res, err := s.db.ExecContext(ctx, q, string(id))
	if err != nil {
		return errors.Wrapf(err, "deleting %s", id)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return stash.ErrNotFound
	}
	return nil
}

// Take reads and removes the entry with the given ID
// in a single statement.
func (s *Store) Take(ctx context.Context, id stash.ID) ([]byte, error) {
	const q = `DELETE FROM entries WHERE id = $1 RETURNING payload`

	var payload []byte
	err := s.db.QueryRowContext(ctx, q, string(id)).Scan(&payload)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, stash.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "taking %s", id)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// Clear removes every entry in the store.
func (s *Store) Clear(ctx context.Context) (*stash.ClearReport, error) {
	return stash.ClearAll(ctx, s)
}

// Default busy timeout for stores created from configuration.
const defaultBusyTimeout = 5 * time.Second

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (stash.Store, error) {
		path, ok := conf["file"].(string)
		if !ok {
			return nil, errors.New(`missing "file" parameter`)
		}
		return Open(ctx, path, defaultBusyTimeout)
	})
}
