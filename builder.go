package weft

import (
	"fmt"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/pkg/api"
)

// FlowBuilder provides a fluent API for defining workflow graphs:
//
//	def, err := weft.NewFlow("order-alerts").
//	    Trigger("hook", weft.NodeWebhookTrigger, map[string]any{"token": token}).
//	    Node("fetch", weft.NodeHTTPRequest, map[string]any{
//	        "url": "https://api.example.com/orders/{{trigger.body.orderId}}",
//	    }).
//	    Node("notify", weft.NodeSendTelegram, map[string]any{
//	        "chatId": "{{vars.chatId}}",
//	        "text":   "order {{fetch.body.id}} received",
//	    }).
//	    Edge("hook", "fetch").
//	    Edge("fetch", "notify").
//	    Build()
type FlowBuilder struct {
	def api.WorkflowDefinition
}

// NewFlow creates a workflow builder. id doubles as the display name
// unless Named is called.
func NewFlow(id string) *FlowBuilder {
	return &FlowBuilder{
		def: api.WorkflowDefinition{
			ID:   id,
			Name: id,
		},
	}
}

// Named sets the workflow's display name.
func (b *FlowBuilder) Named(name string) *FlowBuilder {
	b.def.Name = name
	return b
}

// Variables sets the workflow's static variables, addressable in node
// configuration as {{vars.key}}.
func (b *FlowBuilder) Variables(vars map[string]any) *FlowBuilder {
	b.def.Variables = vars
	return b
}

// Trigger appends the workflow's trigger node. Every workflow needs
// exactly one.
func (b *FlowBuilder) Trigger(id string, t NodeType, data map[string]any) *FlowBuilder {
	if !t.IsTrigger() {
		panic(fmt.Sprintf("weft: node type %q is not a trigger", t))
	}
	return b.node(id, t, data, nil)
}

// Node appends an action node.
func (b *FlowBuilder) Node(id string, t NodeType, data map[string]any) *FlowBuilder {
	if t.IsTrigger() {
		panic(fmt.Sprintf("weft: use Trigger for node type %q", t))
	}
	return b.node(id, t, data, nil)
}

// NodeWithRetry appends an action node carrying a retry policy.
func (b *FlowBuilder) NodeWithRetry(id string, t NodeType, data map[string]any, retry RetryConfig) *FlowBuilder {
	if t.IsTrigger() {
		panic(fmt.Sprintf("weft: use Trigger for node type %q", t))
	}
	// Copy so callers can mutate their RetryConfig after the call without
	// affecting the stored definition.
	r := retry
	return b.node(id, t, data, &r)
}

func (b *FlowBuilder) node(id string, t NodeType, data map[string]any, retry *RetryConfig) *FlowBuilder {
	if id == "" {
		panic("weft: node id must not be empty")
	}
	b.def.Nodes = append(b.def.Nodes, api.Node{
		ID:    id,
		Type:  t,
		Name:  id,
		Data:  data,
		Retry: retry,
	})
	return b
}

// ContinueOnFail marks the most recently added node as non-fatal: its
// failure is logged but the run proceeds.
func (b *FlowBuilder) ContinueOnFail() *FlowBuilder {
	if len(b.def.Nodes) == 0 {
		panic("weft: ContinueOnFail called before any node")
	}
	b.def.Nodes[len(b.def.Nodes)-1].ContinueOnFail = true
	return b
}

// Edge connects two nodes.
func (b *FlowBuilder) Edge(source, target string) *FlowBuilder {
	b.def.Edges = append(b.def.Edges, api.Edge{Source: source, Target: target})
	return b
}

// Branch connects a condition node to a target along a handle ("true" or
// "false").
func (b *FlowBuilder) Branch(source, handle, target string) *FlowBuilder {
	b.def.Edges = append(b.def.Edges, api.Edge{Source: source, Target: target, SourceHandle: handle})
	return b
}

// Definition returns the definition built so far, without validation.
func (b *FlowBuilder) Definition() WorkflowDefinition {
	return b.def
}

// Build validates the graph and returns the definition. An engine run
// would surface the same structural errors; Build catches them at
// definition time instead.
func (b *FlowBuilder) Build() (WorkflowDefinition, error) {
	if _, err := graph.Resolve(b.def); err != nil {
		return WorkflowDefinition{}, err
	}
	return b.def, nil
}

// MustBuild is like Build but panics on error. Useful for initialization
// in main().
func (b *FlowBuilder) MustBuild() WorkflowDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
