package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Scope is the variable environment one instance's expressions evaluate in.
// It is built once per instance and updated between steps as outcomes and
// step-level env vars change. Not safe for concurrent use; each instance
// owns its scope.
type Scope struct {
	matrix cty.Value
	env    cty.Value

	success   bool
	cancelled bool
}

// NewScope returns a scope with an empty matrix assignment, an empty
// environment and a clean outcome (success=true).
func NewScope() *Scope {
	return &Scope{
		matrix:  cty.EmptyObjectVal,
		env:     cty.EmptyObjectVal,
		success: true,
	}
}

// SetMatrix installs the instance's axis→value assignment.
func (s *Scope) SetMatrix(assignment map[string]string) {
	s.matrix = stringObject(assignment)
}

// SetEnv installs the merged environment visible to the current step.
func (s *Scope) SetEnv(env map[string]string) {
	s.env = stringObject(env)
}

// SetOutcome records whether any prior step hard-failed and whether the run
// was cancelled.
func (s *Scope) SetOutcome(failed, cancelled bool) {
	s.success = !failed
	s.cancelled = cancelled
}

// RenderTemplate evaluates a command template, interpolating ${...}
// expressions against the scope. A string with no interpolations comes back
// unchanged.
func (s *Scope) RenderTemplate(src string) (string, error) {
	tmpl, diags := hclsyntax.ParseTemplate([]byte(src), "<template>", hcl.InitialPos)
	if diags.HasErrors() {
		return "", fmt.Errorf("parsing template %q: %w", src, diags)
	}
	val, diags := tmpl.Value(s.evalContext())
	if diags.HasErrors() {
		return "", fmt.Errorf("evaluating template %q: %w", src, diags)
	}
	out, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("template %q did not produce a string: %w", src, err)
	}
	return out.AsString(), nil
}

// EvalBool evaluates a predicate expression to a boolean.
func (s *Scope) EvalBool(src string) (bool, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(src), "<if>", hcl.InitialPos)
	if diags.HasErrors() {
		return false, fmt.Errorf("parsing predicate %q: %w", src, diags)
	}
	val, diags := parsed.Value(s.evalContext())
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating predicate %q: %w", src, diags)
	}
	out, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("predicate %q did not produce a boolean: %w", src, err)
	}
	return out.True(), nil
}

// evalContext assembles the hcl.EvalContext for one evaluation.
func (s *Scope) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix":    s.matrix,
			"env":       s.env,
			"success":   cty.BoolVal(s.success),
			"failure":   cty.BoolVal(!s.success),
			"cancelled": cty.BoolVal(s.cancelled),
			"always":    cty.True,
		},
	}
}

// stringObject converts a string map into a cty object value.
func stringObject(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}
