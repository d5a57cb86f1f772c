package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/flowgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// exprSource recovers the raw source text of an unevaluated expression.
// Quoted templates come back without their surrounding quotes, so the
// model carries exactly what the executor's scope should re-parse.
func (l *Loader) exprSource(expr hcl.Expression) string {
	if expr == nil {
		return ""
	}
	rng := expr.Range()
	src, ok := l.sources[rng.Filename]
	if !ok || rng.End.Byte > len(src) {
		return ""
	}
	out := string(src[rng.Start.Byte:rng.End.Byte])
	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = out[1 : len(out)-1]
	}
	return out
}

// templateMap converts an `env = { ... }` attribute into a string map,
// keeping the values as raw template source.
func (l *Loader) templateMap(expr hcl.Expression, subject string) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	// An omitted optional attribute decodes to a synthetic null expression,
	// not a nil one; probing the value is the only way to tell it apart
	// from a real object (whose template values would fail evaluation here).
	if val, diags := expr.Value(nil); !diags.HasErrors() && val.IsNull() {
		return nil, nil
	}
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, config.NewConfigError(subject, "expected an object of string values: %v", diags)
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, err := staticString(pair.Key)
		if err != nil {
			return nil, config.NewConfigError(subject, "invalid key: %v", err)
		}
		out[key] = l.exprSource(pair.Value)
	}
	return out, nil
}

// partialAssignments evaluates a static list of partial axis→value
// objects, as used by `exclude` and `soft_fail`.
func partialAssignments(expr hcl.Expression, subject string) ([]map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, config.NewConfigError(subject, "must be a static list of objects: %v", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, config.NewConfigError(subject, "must be a list of objects")
	}

	var out []map[string]string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if !elem.CanIterateElements() {
			return nil, config.NewConfigError(subject, "entries must be objects of axis values")
		}
		entry := make(map[string]string)
		for inner := elem.ElementIterator(); inner.Next(); {
			k, v := inner.Element()
			str, err := convert.Convert(v, cty.String)
			if err != nil {
				return nil, config.NewConfigError(subject, "value for %s is not a string", k.AsString())
			}
			entry[k.AsString()] = str.AsString()
		}
		out = append(out, entry)
	}
	return out, nil
}

// staticString evaluates an expression that must be a constant string.
func staticString(expr hcl.Expression) (string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("%w", diags)
	}
	out, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	return out.AsString(), nil
}
