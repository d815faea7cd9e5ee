// Package store is a registry of stash backends.
// Each backend registers a Factory under a type name in its init function,
// so a stash can be constructed from a decoded configuration map.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobg/stash"
)

// Factory creates a store from configuration parameters.
type Factory func(context.Context, map[string]interface{}) (stash.Store, error)

var registry = make(map[string]Factory)

// Register makes a Factory available to Create under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create produces a store of the type registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (stash.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Types lists the registered keys in sorted order.
func Types() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Nested is a helper for Factory implementations that wrap another store.
// It creates the store described by the map in conf[param].
func Nested(ctx context.Context, conf map[string]interface{}, param string) (stash.Store, error) {
	nested, ok := conf[param].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf(`missing "%s" parameter`, param)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, fmt.Errorf(`"%s" parameter missing "type"`, param)
	}
	return Create(ctx, nestedType, nested)
}
