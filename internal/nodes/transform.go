package nodes

import (
	"context"
	"fmt"

	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/internal/sandbox"
	"github.com/weftlabs/weft/pkg/api"
)

// TransformHandler computes a pure data transform. Two modes:
//
//   - "expression" (default): a sandboxed expression over input/ctx/vars.
//   - "jsonpath": an extraction-only JSON-path against the node's input.
type TransformHandler struct{}

func (h *TransformHandler) Type() api.NodeType { return api.NodeTransform }

func (h *TransformHandler) Required() []string { return nil }

func (h *TransformHandler) Execute(ctx context.Context, req Request) (any, error) {
	mode := stringField(req.Data, "mode")
	if mode == "" {
		mode = "expression"
	}

	switch mode {
	case "expression":
		code := stringField(req.Data, "expression")
		if code == "" {
			return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "expression", Reason: "required"}
		}
		out, err := sandbox.Eval(code, sandbox.Env{
			Input: req.Input,
			Ctx:   req.Ctx.Snapshot(),
			Vars:  req.Ctx.Vars(),
		})
		if err != nil {
			return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "expression", Reason: err.Error()}
		}
		return out, nil

	case "jsonpath":
		path := stringField(req.Data, "path")
		if path == "" {
			return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "path", Reason: "required"}
		}
		out, err := datactx.JSONPath(req.Input, path)
		if err != nil {
			return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "path", Reason: err.Error()}
		}
		return out, nil

	default:
		return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
}
