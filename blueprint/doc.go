// Package blueprint defines the deferred-call value model: a Blueprint
// describes a pure function call without performing it, a CachedBlueprint
// annotates one with a durable store slot, and a PhonyBlueprint pairs a real
// computation with a stand-in used for identity and rendering.
//
// # Why Blueprints Exist
//
// A blueprint is a value, so it can be placed inside slices, maps and structs,
// handed around, rendered to a record, and deduplicated by reference identity.
// Two distinct blueprints with identical contents stay distinct; reusing the
// same *Blueprint twice is what makes the engine evaluate it once.
//
// # Decomposition
//
// Every value the engine walks is decomposed through Extract into its
// children plus a rebuild function satisfying the round-trip law:
// rebuilding the unmodified children yields the original value. Blueprints,
// slices, arrays, maps and exported struct fields decompose out of the box;
// user types either implement Decomposable or register an ExtractorFunc.
package blueprint
