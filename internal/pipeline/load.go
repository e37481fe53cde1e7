package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/bluegraph/blueprint"
	"github.com/vk/bluegraph/cachestore"
	"github.com/vk/bluegraph/internal/ctxlog"
	"github.com/vk/bluegraph/internal/registry"
)

// StoreOpener resolves the store name given in a step's `cache` attribute to
// a live store. The same name must always resolve to the same store within
// one load.
type StoreOpener func(name string) cachestore.Store

// Pipeline is the lowered form of one pipeline file.
type Pipeline struct {
	// Steps maps step names to their blueprint values (*blueprint.Blueprint
	// or *blueprint.CachedBlueprint).
	Steps map[string]any
	// Target is the value Construct should resolve: the step named by the
	// `target` attribute, or the last declared step.
	Target any
}

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "target"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "step", LabelNames: []string{"name"}},
	},
}

var stepSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "fn", Required: true},
		{Name: "args"},
		{Name: "params"},
		{Name: "cache"},
		{Name: "key"},
	},
}

// Load parses and lowers a pipeline file.
func Load(ctx context.Context, path string, reg *registry.Registry, stores StoreOpener) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("reading %s: %w", path, diags)
	}

	p := &Pipeline{Steps: make(map[string]any)}
	var lastStep any

	for _, block := range content.Blocks {
		name := block.Labels[0]
		if _, dup := p.Steps[name]; dup {
			return nil, fmt.Errorf("%s: duplicate step %q", block.DefRange, name)
		}
		step, err := lowerStep(ctx, block, reg, stores, p.Steps)
		if err != nil {
			return nil, err
		}
		p.Steps[name] = step
		lastStep = step
		logger.Debug("Step lowered.", "step", name)
	}

	if attr, ok := content.Attributes["target"]; ok {
		v, err := evalExpr(attr.Expr, p.Steps)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		p.Target = v
	} else {
		p.Target = lastStep
	}
	if p.Target == nil {
		return nil, fmt.Errorf("%s: pipeline has no steps", path)
	}

	logger.Debug("Pipeline loaded.", "step_count", len(p.Steps))
	return p, nil
}

// lowerStep turns one step block into a blueprint value.
func lowerStep(ctx context.Context, block *hcl.Block, reg *registry.Registry, stores StoreOpener, steps map[string]any) (any, error) {
	content, diags := block.Body.Content(stepSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("step %q: %w", block.Labels[0], diags)
	}

	fnName, err := evalString(content.Attributes["fn"].Expr, steps)
	if err != nil {
		return nil, fmt.Errorf("step %q: fn: %w", block.Labels[0], err)
	}
	fn, ok := reg.Lookup(fnName)
	if !ok {
		return nil, fmt.Errorf("%s: unknown function %q", content.Attributes["fn"].Range, fnName)
	}

	var argsAndParams []any
	if attr, ok := content.Attributes["args"]; ok {
		args, err := evalTuple(attr.Expr, steps)
		if err != nil {
			return nil, fmt.Errorf("step %q: args: %w", block.Labels[0], err)
		}
		argsAndParams = append(argsAndParams, args...)
	}
	if attr, ok := content.Attributes["params"]; ok {
		params, err := evalObject(attr.Expr, steps)
		if err != nil {
			return nil, fmt.Errorf("step %q: params: %w", block.Labels[0], err)
		}
		argsAndParams = append(argsAndParams, params...)
	}

	bp := blueprint.B(fn, argsAndParams...)

	attr, cached := content.Attributes["cache"]
	if !cached {
		if _, hasKey := content.Attributes["key"]; hasKey {
			return nil, fmt.Errorf("step %q: key given without cache", block.Labels[0])
		}
		return bp, nil
	}

	storeName, err := evalString(attr.Expr, steps)
	if err != nil {
		return nil, fmt.Errorf("step %q: cache: %w", block.Labels[0], err)
	}
	store := stores(storeName)

	loc := blueprint.In(store)
	if keyAttr, ok := content.Attributes["key"]; ok {
		key, err := evalString(keyAttr.Expr, steps)
		if err != nil {
			return nil, fmt.Errorf("step %q: key: %w", block.Labels[0], err)
		}
		loc = blueprint.At(store, key)
	}
	return blueprint.CachedFrom(loc, bp), nil
}

// evalExpr evaluates an expression against the steps declared so far and
// converts the result to a Go value.
func evalExpr(expr hcl.Expression, steps map[string]any) (any, error) {
	val, diags := expr.Value(evalContext(steps))
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToGo(val)
}

func evalString(expr hcl.Expression, steps map[string]any) (string, error) {
	v, err := evalExpr(expr, steps)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want a string, got %T", expr.Range(), v)
	}
	return s, nil
}

func evalTuple(expr hcl.Expression, steps map[string]any) ([]any, error) {
	v, err := evalExpr(expr, steps)
	if err != nil {
		return nil, err
	}
	xs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: want a sequence, got %T", expr.Range(), v)
	}
	return xs, nil
}

// evalObject lowers a params object into blueprint.P entries in sorted name
// order, so pipelines derive reproducible cache keys.
func evalObject(expr hcl.Expression, steps map[string]any) ([]any, error) {
	val, diags := expr.Value(evalContext(steps))
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("%s: want an object, got %s", expr.Range(), val.Type().FriendlyName())
	}

	var out []any
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		goVal, err := ctyToGo(v)
		if err != nil {
			return nil, err
		}
		out = append(out, blueprint.P(k.AsString(), goVal))
	}
	return out, nil
}
