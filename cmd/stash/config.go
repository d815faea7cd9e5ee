package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store"
	"github.com/bobg/stash/store/file"
	_ "github.com/bobg/stash/store/logging"
	_ "github.com/bobg/stash/store/mem"
	_ "github.com/bobg/stash/store/sqlite3"
)

// configEnv names the environment variable that supplies a default for -config.
const configEnv = "STASH_CONFIG"

// storeFromConfig creates the store described by the JSON config file filename.
// With no filename it is the file store in stash.DataDir.
func storeFromConfig(ctx context.Context, filename string) (stash.Store, error) {
	if filename == "" {
		dir, err := stash.DataDir()
		if err != nil {
			return nil, err
		}
		return file.New(dir), nil
	}

	var conf map[string]interface{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf("config file %s missing `type` parameter (one of %v)", filename, store.Types())
	}

	s, err := store.Create(ctx, typ, conf)
	return s, errors.Wrapf(err, "creating %s-type store", typ)
}
