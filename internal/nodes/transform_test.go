package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/pkg/api"
)

func TestTransform_ExpressionMode(t *testing.T) {
	h := &TransformHandler{}
	req := testRequest(api.Node{ID: "shape", Type: api.NodeTransform}, map[string]any{
		"expression": `{"doubled": input.n * 2}`,
	})
	req.Input = map[string]any{"n": 21}

	out, err := h.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["doubled"] != 42 {
		t.Fatalf("out = %v", out)
	}
}

func TestTransform_ExpressionSeesVarsAndCtx(t *testing.T) {
	h := &TransformHandler{}

	dctx := datactx.New(api.TriggerEvent{Method: "POST"}, map[string]any{"prefix": "method:"})
	dctx.Set("fetch", map[string]any{"count": 3})

	out, err := h.Execute(context.Background(), Request{
		Node: api.Node{ID: "shape", Type: api.NodeTransform},
		Data: map[string]any{"expression": `vars.prefix + ctx.trigger.method`},
		Ctx:  dctx,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "method:POST" {
		t.Fatalf("out = %v", out)
	}

	out, err = h.Execute(context.Background(), Request{
		Node: api.Node{ID: "shape", Type: api.NodeTransform},
		Data: map[string]any{"expression": `ctx.fetch.count + 1`},
		Ctx:  dctx,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 4 {
		t.Fatalf("out = %v", out)
	}
}

func TestTransform_JSONPathMode(t *testing.T) {
	h := &TransformHandler{}
	req := testRequest(api.Node{ID: "pick", Type: api.NodeTransform}, map[string]any{
		"mode": "jsonpath",
		"path": "$.items[0].id",
	})
	req.Input = map[string]any{
		"items": []any{map[string]any{"id": "a-1"}},
	}

	out, err := h.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a-1" {
		t.Fatalf("out = %v", out)
	}
}

func TestTransform_Failures(t *testing.T) {
	h := &TransformHandler{}

	cases := []map[string]any{
		{},                              // missing expression
		{"expression": "1 +"},           // malformed expression
		{"mode": "jsonpath"},            // missing path
		{"mode": "jsonpath", "path": "$.nope"}, // missing key
		{"mode": "xslt"},                // unknown mode
	}
	for _, data := range cases {
		req := testRequest(api.Node{ID: "shape", Type: api.NodeTransform}, data)
		req.Input = map[string]any{}
		_, err := h.Execute(context.Background(), req)
		var ve *api.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("data %v: expected ValidationError, got %v", data, err)
		}
		if api.Retryable(err) {
			t.Fatalf("data %v: validation failures must not be retryable", data)
		}
	}
}
