// Package graph resolves a workflow definition into an executable order.
//
// Nodes and edges are kept in flat indexed tables with id-based adjacency
// lists. Structural invariants are checked once at load time: every edge
// endpoint must exist, exactly one trigger node must be present with no
// incoming edges, and the graph must be acyclic. The traversal order is
// depth-first from the trigger with first-seen-wins on diamond merges; the
// same order drives both execution and the "available data sources"
// contract, so it must stay deterministic.
package graph

import (
	"sort"

	"github.com/weftlabs/weft/pkg/api"
)

// Graph is the resolved, validated form of a workflow definition.
type Graph struct {
	def api.WorkflowDefinition

	nodes   []api.Node
	index   map[string]int // node id -> position in nodes
	out     map[string][]api.Edge
	in      map[string][]api.Edge
	trigger string
	order   []string // depth-first order from the trigger, trigger excluded
}

// Resolve validates def and builds its traversal order. All violations are
// reported as *api.StructuralError; a run is never started from an invalid
// definition.
func Resolve(def api.WorkflowDefinition) (*Graph, error) {
	g := &Graph{
		def:   def,
		nodes: def.Nodes,
		index: make(map[string]int, len(def.Nodes)),
		out:   make(map[string][]api.Edge),
		in:    make(map[string][]api.Edge),
	}

	if len(def.Nodes) == 0 {
		return nil, api.NewStructuralError("workflow has no nodes")
	}

	for i, n := range def.Nodes {
		if n.ID == "" {
			return nil, api.NewStructuralError("node at position %d has no id", i)
		}
		if !n.Type.Known() {
			return nil, api.NewStructuralError("node %s has unknown type %q", n.ID, n.Type)
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, api.NewStructuralError("duplicate node id %q", n.ID)
		}
		g.index[n.ID] = i
	}

	for _, e := range def.Edges {
		if _, ok := g.index[e.Source]; !ok {
			return nil, api.NewStructuralError("edge references unknown source %q", e.Source)
		}
		if _, ok := g.index[e.Target]; !ok {
			return nil, api.NewStructuralError("edge references unknown target %q", e.Target)
		}
		g.out[e.Source] = append(g.out[e.Source], e)
		g.in[e.Target] = append(g.in[e.Target], e)
	}

	for id, n := range g.index {
		if def.Nodes[n].Type == api.NodeCondition {
			if err := g.checkConditionFanout(id); err != nil {
				return nil, err
			}
		}
	}

	if err := g.findTrigger(); err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	g.order = g.walk(g.trigger)
	return g, nil
}

func (g *Graph) findTrigger() error {
	var triggers []string
	for _, n := range g.nodes {
		if n.Type.IsTrigger() {
			triggers = append(triggers, n.ID)
		}
	}
	if len(triggers) == 0 {
		return api.NewStructuralError("workflow has no trigger node")
	}
	if len(triggers) > 1 {
		sort.Strings(triggers)
		return api.NewStructuralError("workflow has %d trigger nodes (%v), want exactly one", len(triggers), triggers)
	}
	if len(g.in[triggers[0]]) > 0 {
		return api.NewStructuralError("trigger node %q has incoming edges", triggers[0])
	}
	g.trigger = triggers[0]
	return nil
}

// A condition node may have at most one outgoing edge per handle value.
func (g *Graph) checkConditionFanout(id string) error {
	seen := make(map[string]bool, 2)
	for _, e := range g.out[id] {
		if seen[e.SourceHandle] {
			return api.NewStructuralError("condition node %q has multiple edges for handle %q", id, e.SourceHandle)
		}
		seen[e.SourceHandle] = true
	}
	return nil
}

func (g *Graph) checkAcyclic() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // done
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		for _, e := range g.out[id] {
			switch color[e.Target] {
			case grey:
				return false
			case white:
				if !visit(e.Target) {
					return false
				}
			}
		}
		color[id] = black
		return true
	}

	for _, n := range g.nodes {
		if color[n.ID] == white && !visit(n.ID) {
			return api.NewStructuralError("workflow graph contains a cycle")
		}
	}
	return nil
}

// walk returns the depth-first order of nodes reachable from start,
// excluding start itself. Edges are followed in definition order, so the
// order is stable for a given definition; on diamond merges the first path
// to reach a node wins.
func (g *Graph) walk(start string) []string {
	var order []string
	seen := map[string]bool{start: true}

	var visit func(id string)
	visit = func(id string) {
		for _, e := range g.out[id] {
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			order = append(order, e.Target)
			visit(e.Target)
		}
	}
	visit(start)
	return order
}

// TriggerID returns the id of the workflow's single trigger node.
func (g *Graph) TriggerID() string { return g.trigger }

// Order returns the execution order: every node reachable from the trigger,
// depth-first, trigger excluded. Callers must not mutate the slice.
func (g *Graph) Order() []string { return g.order }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (api.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return api.Node{}, false
	}
	return g.nodes[i], true
}

// Outgoing returns the outgoing edges of a node in definition order.
func (g *Graph) Outgoing(id string) []api.Edge { return g.out[id] }

// Incoming returns the incoming edges of a node in definition order.
func (g *Graph) Incoming(id string) []api.Edge { return g.in[id] }

// Sources returns the data sources in scope for the given node: "trigger"
// first, then every upstream node in the graph's traversal order. The
// editor's "available data" view and the engine's templating both rely on
// this exact order.
func (g *Graph) Sources(nodeID string) []string {
	upstream := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		for _, e := range g.in[id] {
			if upstream[e.Source] {
				continue
			}
			upstream[e.Source] = true
			mark(e.Source)
		}
	}
	mark(nodeID)

	sources := []string{"trigger"}
	for _, id := range g.order {
		if id == nodeID {
			continue
		}
		if upstream[id] {
			sources = append(sources, id)
		}
	}
	return sources
}

// Successors returns the targets of a node's outgoing edges, optionally
// restricted to a source handle ("" matches edges with no handle).
func (g *Graph) Successors(id, handle string) []string {
	var targets []string
	for _, e := range g.out[id] {
		if e.SourceHandle == handle {
			targets = append(targets, e.Target)
		}
	}
	return targets
}

// Reachable returns every node reachable from start (exclusive) following
// only edges whose source handle matches when the source is a condition
// node with the given chosen handle left out. It is used to mark the
// not-taken branch of a condition as skipped.
func (g *Graph) Reachable(start string, viaHandle string) []string {
	var result []string
	seen := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		for _, e := range g.out[id] {
			if id == start && e.SourceHandle != viaHandle {
				continue
			}
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			result = append(result, e.Target)
			visit(e.Target)
		}
	}
	visit(start)
	return result
}
