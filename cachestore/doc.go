// Package cachestore defines the durable key-value contract consulted by the
// execution engine, plus the two built-in stores: an in-memory store for
// tests and single-process sessions, and a msgpack-encoded file store where
// each store owns one file and each group key addresses an independent slot.
//
// A missing slot is a cache miss. A store that exists but cannot be read is a
// hard error, reported distinctly via ErrCorrupt, so that a corrupted cache
// never silently degrades into recomputation.
package cachestore
