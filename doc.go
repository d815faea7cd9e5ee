// Package stash keeps byte streams for later.
//
// A stash is a persistent collection of opaque payloads,
// typically the captured output of some command,
// each stored with its creation time.
// Payloads are retrieved by recency:
// index 0 is the newest entry,
// index 1 the one before that,
// and so on.
//
// There is no stored index or manifest.
// Every entry has a unique ID that encodes its creation time,
// and the newest-first order is derived from the live set of IDs
// each time it is needed.
// This means independent, short-lived processes
// can push, pop, and clear the same stash at the same time
// relying only on the atomicity of the storage medium's
// create, rename, and delete primitives.
//
// Storage backends live under the store subpackage.
// The default one,
// store/file,
// keeps one file per entry in a directory
// (see DataDir).
package stash
