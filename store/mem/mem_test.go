package mem

import (
	"context"
	"testing"

	"github.com/bobg/stash"
	"github.com/bobg/stash/testutil"
)

func TestStore(t *testing.T) {
	testutil.Stash(context.Background(), t, func(*testing.T) stash.Store { return New() })
}
