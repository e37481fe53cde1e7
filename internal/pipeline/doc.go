// Package pipeline loads declarative HCL pipeline files and lowers them into
// blueprint values. Each `step` block becomes one blueprint; other steps are
// referenced as step.<name>, carried through evaluation as cty capsule
// values. Steps must be declared before they are referenced, which also
// keeps every pipeline acyclic by construction.
package pipeline
