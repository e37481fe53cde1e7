package pipeline

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// stepRefType carries a built blueprint through the HCL evaluator. Wrapping
// in a capsule keeps pointer identity intact, so two steps naming the same
// upstream step share one blueprint instance.
var stepRefType = cty.Capsule("step", reflect.TypeOf((*any)(nil)).Elem())

func stepRef(v any) cty.Value {
	return cty.CapsuleVal(stepRefType, &v)
}

// evalContext exposes the steps declared so far as `step.<name>` variables.
// Steps only see steps above them, which keeps the file acyclic by
// construction.
func evalContext(steps map[string]any) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(steps))
	for name, bp := range steps {
		vars[name] = stepRef(bp)
	}
	stepVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		stepVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"step": stepVal},
	}
}

// ctyToGo converts an evaluated cty value into the Go shape blueprints
// expect. Numbers become float64; capsule values unwrap to the blueprint
// they carry.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	t := val.Type()
	switch {
	case t == cty.String:
		return val.AsString(), nil
	case t == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case t == cty.Bool:
		return val.True(), nil
	case t.IsCapsuleType():
		if t != stepRefType {
			return nil, fmt.Errorf("unsupported capsule type %s", t.FriendlyName())
		}
		return *(val.EncapsulatedValue().(*any)), nil
	case t.IsTupleType(), t.IsListType(), t.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			goVal, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	case t.IsObjectType(), t.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			goVal, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = goVal
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
