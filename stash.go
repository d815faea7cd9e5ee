package stash

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ID identifies an entry.
// It is a fixed-width decimal count of nanoseconds since the Unix epoch,
// a hyphen,
// and a version-7 UUID breaking ties between entries created in the same nanosecond.
// The lexical order of IDs is their chronological order.
type ID string

const (
	tsWidth   = 19
	uuidWidth = 36
)

// NewID produces a fresh ID for an entry created at t.
func NewID(t time.Time) (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generating uuid")
	}
	return ID(fmt.Sprintf("%0*d-%s", tsWidth, t.UnixNano(), u)), nil
}

// ParseID parses the string form of an ID.
func ParseID(s string) (ID, error) {
	if len(s) != tsWidth+1+uuidWidth || s[tsWidth] != '-' {
		return "", fmt.Errorf("malformed id %q", s)
	}
	n, err := strconv.ParseInt(s[:tsWidth], 10, 64)
	if err != nil {
		return "", errors.Wrapf(err, "parsing timestamp of id %q", s)
	}
	if n < 0 {
		return "", fmt.Errorf("negative timestamp in id %q", s)
	}
	if _, err := uuid.Parse(s[tsWidth+1:]); err != nil {
		return "", errors.Wrapf(err, "parsing suffix of id %q", s)
	}
	return ID(s), nil
}

// Valid tells whether id is well-formed.
func (id ID) Valid() bool {
	_, err := ParseID(string(id))
	return err == nil
}

// Time is the creation time encoded in id.
// It is the zero time if id is malformed.
func (id ID) Time() time.Time {
	if len(id) < tsWidth {
		return time.Time{}
	}
	n, err := strconv.ParseInt(string(id[:tsWidth]), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Less tells whether id was created before other.
func (id ID) Less(other ID) bool {
	return strings.Compare(string(id), string(other)) < 0
}

func (id ID) String() string {
	return string(id)
}

// Entry describes one stored payload.
type Entry struct {
	ID      ID
	Created time.Time
	Size    int64
}

// SortNewestFirst sorts entries in place so that the newest comes first.
func SortNewestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[j].ID.Less(entries[i].ID)
	})
}

// Getter is a read-only Store (qv).
type Getter interface {
	// List produces the entries in the store, newest first.
	//
	// The result reflects the entries present at roughly the moment List was called.
	// Entries created or removed concurrently may or may not be reflected,
	// but an entry is never listed before its payload is fully written.
	List(context.Context) ([]Entry, error)

	// Read gets the payload of an entry.
	// It returns ErrNotFound if there is no such entry.
	Read(context.Context, ID) ([]byte, error)
}

// Store is a stash.
// It stores payloads - arbitrary byte sequences, possibly empty -
// under IDs that it assigns.
// Payloads are never modified once stored, only removed.
type Store interface {
	Getter

	// Push adds a payload to the store and returns its new ID.
	// No caller ever observes a partially written entry.
	Push(ctx context.Context, payload []byte) (ID, error)

	// Delete removes an entry.
	// It returns ErrNotFound if there is no such entry,
	// including when a concurrent Delete of the same entry won.
	Delete(context.Context, ID) error

	// Clear removes every entry listed at the time of the call.
	// Each removal is independent of the others.
	// The report tells what could not be removed and why.
	Clear(context.Context) (*ClearReport, error)
}

// Taker is a Store that can read and remove an entry in one atomic step.
// Of several concurrent Take calls for the same entry,
// exactly one gets the payload and the others get ErrNotFound.
type Taker interface {
	Take(context.Context, ID) ([]byte, error)
}

var (
	// ErrNotFound is the error returned when an entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOutOfRange is the error returned when an index is not less than the number of entries.
	ErrOutOfRange = errors.New("index out of range")

	// ErrEmpty is the error returned when an index is requested from a store with no entries.
	// Any error matching ErrEmpty also matches ErrOutOfRange.
	ErrEmpty = errors.New("stash is empty")
)

// IndexError is the error produced when an index does not resolve to an entry.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	if e.Count == 0 {
		return ErrEmpty.Error()
	}
	return fmt.Sprintf("index %d out of range (%d entries)", e.Index, e.Count)
}

// Is lets errors.Is match e against ErrOutOfRange and,
// when the store was empty,
// ErrEmpty.
func (e *IndexError) Is(target error) bool {
	switch target {
	case ErrOutOfRange:
		return true
	case ErrEmpty:
		return e.Count == 0
	}
	return false
}
