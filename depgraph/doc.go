// Package depgraph builds the dependency graph: a post-order walk of a root
// value through blueprint.Extract, deduplicated by reference identity so a
// blueprint reused through the same pointer becomes a single node no matter
// how many consumers it has.
package depgraph
