package nodes

import (
	"context"

	"github.com/weftlabs/weft/internal/sandbox"
	"github.com/weftlabs/weft/pkg/api"
)

// ConditionHandler evaluates a boolean expression; the engine routes along
// the outgoing edge whose handle matches the result.
type ConditionHandler struct{}

func (h *ConditionHandler) Type() api.NodeType { return api.NodeCondition }

func (h *ConditionHandler) Required() []string { return []string{"expression"} }

func (h *ConditionHandler) Execute(ctx context.Context, req Request) (any, error) {
	result, err := sandbox.EvalBool(stringField(req.Data, "expression"), sandbox.Env{
		Input: req.Input,
		Ctx:   req.Ctx.Snapshot(),
		Vars:  req.Ctx.Vars(),
	})
	if err != nil {
		return nil, &api.ValidationError{NodeID: req.Node.ID, Field: "expression", Reason: err.Error()}
	}
	return map[string]any{"result": result}, nil
}

// BranchResult extracts the boolean a condition node produced.
func BranchResult(output any) (bool, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return false, false
	}
	b, ok := m["result"].(bool)
	return b, ok
}
