// Package schedule turns dependency-index lists into an ordered partition of
// width-bounded stages using Coffman–Graham layering: a deterministic
// ranking pass followed by last-to-first level packing. Every node lands in
// a strictly later stage than all of its dependencies, and no stage exceeds
// the configured width.
package schedule
