// Package engine reduces and runs dependency graphs: cache hits replace
// constructors with loaders, unreachable nodes are dropped, and the
// remaining nodes execute stage by stage through a pluggable policy. Stage
// k+1 never starts before stage k fully completes; within a stage, nodes are
// independent by construction and may run concurrently.
//
// The engine owns the in-memory result table exclusively. Results are
// reclaimed as soon as the last stage consuming them has finished, which
// bounds peak memory on deep graphs.
//
// Construct is the front door: it builds the graph for an arbitrary value
// and executes it in one call.
package engine
