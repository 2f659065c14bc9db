package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/weftlabs/weft/pkg/api"
)

func node(id string, t api.NodeType) api.Node {
	return api.Node{ID: id, Type: t, Name: id}
}

func edge(src, dst string) api.Edge {
	return api.Edge{Source: src, Target: dst}
}

func branch(src, handle, dst string) api.Edge {
	return api.Edge{Source: src, Target: dst, SourceHandle: handle}
}

func linearDef() api.WorkflowDefinition {
	return api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("a", api.NodeHTTPRequest),
			node("b", api.NodeTransform),
		},
		Edges: []api.Edge{edge("t", "a"), edge("a", "b")},
	}
}

func mustResolve(t *testing.T, def api.WorkflowDefinition) *Graph {
	t.Helper()
	g, err := Resolve(def)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return g
}

func wantStructural(t *testing.T, def api.WorkflowDefinition) {
	t.Helper()
	_, err := Resolve(def)
	if err == nil {
		t.Fatal("expected structural error, got nil")
	}
	var se *api.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected *api.StructuralError, got %T: %v", err, err)
	}
}

func TestResolve_LinearOrder(t *testing.T) {
	g := mustResolve(t, linearDef())
	if g.TriggerID() != "t" {
		t.Fatalf("trigger = %q, want t", g.TriggerID())
	}
	if !reflect.DeepEqual(g.Order(), []string{"a", "b"}) {
		t.Fatalf("order = %v, want [a b]", g.Order())
	}
}

func TestResolve_EmptyWorkflow(t *testing.T) {
	wantStructural(t, api.WorkflowDefinition{ID: "wf"})
}

func TestResolve_MissingNodeID(t *testing.T) {
	def := linearDef()
	def.Nodes[1].ID = ""
	wantStructural(t, def)
}

func TestResolve_UnknownNodeType(t *testing.T) {
	def := linearDef()
	def.Nodes[1].Type = "teleport"
	wantStructural(t, def)
}

func TestResolve_DuplicateNodeID(t *testing.T) {
	def := linearDef()
	def.Nodes[2].ID = "a"
	wantStructural(t, def)
}

func TestResolve_DanglingEdges(t *testing.T) {
	def := linearDef()
	def.Edges = append(def.Edges, edge("a", "ghost"))
	wantStructural(t, def)

	def = linearDef()
	def.Edges = append(def.Edges, edge("ghost", "a"))
	wantStructural(t, def)
}

func TestResolve_NoTrigger(t *testing.T) {
	def := linearDef()
	def.Nodes[0].Type = api.NodeTransform
	wantStructural(t, def)
}

func TestResolve_MultipleTriggers(t *testing.T) {
	def := linearDef()
	def.Nodes = append(def.Nodes, node("t2", api.NodeScheduleTrigger))
	wantStructural(t, def)
}

func TestResolve_TriggerWithIncomingEdge(t *testing.T) {
	def := linearDef()
	def.Edges = append(def.Edges, edge("b", "t"))
	wantStructural(t, def)
}

func TestResolve_Cycle(t *testing.T) {
	def := linearDef()
	def.Edges = append(def.Edges, edge("b", "a"))
	wantStructural(t, def)
}

func TestResolve_ConditionFanoutPerHandle(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("c", api.NodeCondition),
			node("x", api.NodeTransform),
			node("y", api.NodeTransform),
		},
		Edges: []api.Edge{
			edge("t", "c"),
			branch("c", "true", "x"),
			branch("c", "true", "y"),
		},
	}
	wantStructural(t, def)

	// One edge per handle is fine.
	def.Edges[2] = branch("c", "false", "y")
	mustResolve(t, def)
}

// Diamond: t -> a, t -> b, both -> c. Depth-first in definition order puts
// a's subtree before b, and c is visited once, via a.
func TestWalk_DiamondFirstSeenWins(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("a", api.NodeTransform),
			node("b", api.NodeTransform),
			node("c", api.NodeTransform),
		},
		Edges: []api.Edge{
			edge("t", "a"),
			edge("t", "b"),
			edge("a", "c"),
			edge("b", "c"),
		},
	}
	g := mustResolve(t, def)
	if !reflect.DeepEqual(g.Order(), []string{"a", "c", "b"}) {
		t.Fatalf("order = %v, want [a c b]", g.Order())
	}
}

func TestSources_TriggerFirstThenUpstreamInOrder(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("a", api.NodeTransform),
			node("b", api.NodeTransform),
			node("d", api.NodeTransform),
		},
		Edges: []api.Edge{
			edge("t", "a"),
			edge("t", "b"),
			edge("a", "d"),
			edge("b", "d"),
		},
	}
	g := mustResolve(t, def)

	got := g.Sources("d")
	if !reflect.DeepEqual(got, []string{"trigger", "a", "b"}) {
		t.Fatalf("Sources(d) = %v, want [trigger a b]", got)
	}

	// A node sees only its own ancestors.
	got = g.Sources("a")
	if !reflect.DeepEqual(got, []string{"trigger"}) {
		t.Fatalf("Sources(a) = %v, want [trigger]", got)
	}
}

func TestSuccessors_FilteredByHandle(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("c", api.NodeCondition),
			node("yes", api.NodeTransform),
			node("no", api.NodeTransform),
		},
		Edges: []api.Edge{
			edge("t", "c"),
			branch("c", "true", "yes"),
			branch("c", "false", "no"),
		},
	}
	g := mustResolve(t, def)

	if got := g.Successors("c", "true"); !reflect.DeepEqual(got, []string{"yes"}) {
		t.Fatalf("Successors(c, true) = %v", got)
	}
	if got := g.Successors("c", "false"); !reflect.DeepEqual(got, []string{"no"}) {
		t.Fatalf("Successors(c, false) = %v", got)
	}
	if got := g.Successors("t", ""); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("Successors(t, \"\") = %v", got)
	}
}

// A node downstream of both branches stays reachable through the chosen
// handle, so the skip set (false-side minus true-side) excludes it.
func TestReachable_DiamondMergeStaysLive(t *testing.T) {
	def := api.WorkflowDefinition{
		ID: "wf",
		Nodes: []api.Node{
			node("t", api.NodeWebhookTrigger),
			node("c", api.NodeCondition),
			node("yes", api.NodeTransform),
			node("no", api.NodeTransform),
			node("merge", api.NodeTransform),
		},
		Edges: []api.Edge{
			edge("t", "c"),
			branch("c", "true", "yes"),
			branch("c", "false", "no"),
			edge("yes", "merge"),
			edge("no", "merge"),
		},
	}
	g := mustResolve(t, def)

	taken := map[string]bool{}
	for _, id := range g.Reachable("c", "true") {
		taken[id] = true
	}
	if !taken["yes"] || !taken["merge"] {
		t.Fatalf("true branch should reach yes and merge, got %v", taken)
	}

	var skipped []string
	for _, id := range g.Reachable("c", "false") {
		if !taken[id] {
			skipped = append(skipped, id)
		}
	}
	if !reflect.DeepEqual(skipped, []string{"no"}) {
		t.Fatalf("skip set = %v, want [no]", skipped)
	}
}
