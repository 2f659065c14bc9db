// Package sandbox evaluates user-supplied expressions for transform and
// condition nodes. It wraps expr-lang/expr: expressions see only the data
// the engine injects — the predecessor output as "input", the accumulated
// run data as "ctx" and the workflow variables as "vars" — and have no
// access to the network, the filesystem or the process environment.
package sandbox

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Env is the complete set of bindings visible to an expression.
type Env struct {
	Input any
	Ctx   map[string]any
	Vars  map[string]any
}

func (e Env) bindings() map[string]any {
	return map[string]any{
		"input": e.Input,
		"ctx":   e.Ctx,
		"vars":  e.Vars,
	}
}

// Eval compiles and runs code against env. Undefined references evaluate to
// nil instead of failing, matching the template resolver's missing-path
// behavior.
func Eval(code string, env Env) (any, error) {
	if code == "" {
		return nil, fmt.Errorf("empty expression")
	}
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	out, err := expr.Run(program, env.bindings())
	if err != nil {
		return nil, fmt.Errorf("run expression: %w", err)
	}
	return out, nil
}

// EvalBool runs code and coerces the result to a boolean the way condition
// nodes expect: booleans pass through, nil and empty strings are false,
// zero numbers are false, everything else is true.
func EvalBool(code string, env Env) (bool, error) {
	out, err := Eval(code, env)
	if err != nil {
		return false, err
	}
	return Truthy(out), nil
}

// Truthy reports the boolean interpretation of an arbitrary value.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false" && val != "0"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
