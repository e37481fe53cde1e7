package blueprint

import "context"

// PhonyBlueprint pairs a real computation with a stand-in blueprint. The
// stand-in supplies identity, rendering and derived cache keys; only
// dependency extraction sees the real value. The usual reason to need one
// is a computation with no single-call form, such as a composite value or a
// call whose arguments are not representable, that still wants a readable,
// stable serialized form.
type PhonyBlueprint struct {
	real    any
	standIn *Blueprint
}

// Phony wraps a real computation with a stand-in blueprint.
func Phony(real any, standIn *Blueprint) *PhonyBlueprint {
	if standIn == nil {
		panic("blueprint: phony blueprint with a nil stand-in")
	}
	return &PhonyBlueprint{real: real, standIn: standIn}
}

// StandIn returns the blueprint used for identity and rendering.
func (p *PhonyBlueprint) StandIn() *Blueprint { return p.standIn }

// Real returns the wrapped computation.
func (p *PhonyBlueprint) Real() any { return p.real }

// Arg delegates indexed access to the stand-in.
func (p *PhonyBlueprint) Arg(i int) any { return p.standIn.Arg(i) }

// Param delegates named-parameter access to the stand-in.
func (p *PhonyBlueprint) Param(name string) (any, error) { return p.standIn.Param(name) }

// Children implements Decomposable using the real computation, bypassing
// the stand-in.
func (p *PhonyBlueprint) Children() []any {
	children, _ := Extract(p.real)
	return children
}

// Rebuild implements Decomposable using the real computation.
func (p *PhonyBlueprint) Rebuild(ctx context.Context, resolved []any) (any, error) {
	_, rebuild := Extract(p.real)
	return rebuild(ctx, resolved)
}

// String returns the stand-in's canonical textual rendering.
func (p *PhonyBlueprint) String() string { return canonicalText(p.standIn) }
