package sandbox

import (
	"testing"
)

func TestEval_BindingsVisible(t *testing.T) {
	env := Env{
		Input: map[string]any{"statusCode": 200},
		Ctx:   map[string]any{"fetch": map[string]any{"count": 3}},
		Vars:  map[string]any{"threshold": 10},
	}

	got, err := Eval(`input.statusCode + vars.threshold`, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 210 {
		t.Fatalf("got %v", got)
	}

	got, err = Eval(`ctx.fetch.count * 2`, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("got %v", got)
	}
}

func TestEval_BuildsStructures(t *testing.T) {
	got, err := Eval(`{"message": "hi " + input.name, "n": 1}`, Env{
		Input: map[string]any{"name": "ada"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if m["message"] != "hi ada" {
		t.Fatalf("message = %v", m["message"])
	}
}

// Undefined references evaluate to nil, matching the template resolver.
func TestEval_UndefinedReferencesAreNil(t *testing.T) {
	got, err := Eval(`nothing`, Env{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestEval_Errors(t *testing.T) {
	if _, err := Eval("", Env{}); err == nil {
		t.Fatal("empty expression must fail")
	}
	if _, err := Eval(`1 +`, Env{}); err == nil {
		t.Fatal("malformed expression must fail")
	}
}

func TestEvalBool_Coercion(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`input.count > 2`, true},
		{`"yes"`, true},
		{`""`, false},
		{`"false"`, false},
		{`"0"`, false},
		{`0`, false},
		{`1`, true},
		{`nil`, false},
	}
	env := Env{Input: map[string]any{"count": 3}}
	for _, c := range cases {
		got, err := EvalBool(c.code, env)
		if err != nil {
			t.Fatalf("EvalBool(%q): %v", c.code, err)
		}
		if got != c.want {
			t.Fatalf("EvalBool(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestTruthy_NonScalarsAreTrue(t *testing.T) {
	if !Truthy(map[string]any{}) {
		t.Fatal("maps should be truthy")
	}
	if !Truthy([]any{1}) {
		t.Fatal("slices should be truthy")
	}
	if Truthy(nil) {
		t.Fatal("nil should be falsy")
	}
	if Truthy(0.0) {
		t.Fatal("zero float should be falsy")
	}
}
