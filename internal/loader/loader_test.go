package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weftlabs/weft/pkg/api"
)

const orderFlow = `
id: orders
name: Order intake
nodes:
  - id: hook
    type: webhook-trigger
    name: hook
    data:
      token: abc123abc123abc1
  - id: fetch
    type: http-request
    name: fetch
    data:
      url: https://api.example.com/orders/{{trigger.body.orderId}}
edges:
  - source: hook
    target: fetch
variables:
  channel: "#orders"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadWorkflow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "orders.yaml", orderFlow)

	def, err := LoadWorkflow(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "orders" || def.Name != "Order intake" {
		t.Fatalf("def = %+v", def)
	}
	if len(def.Nodes) != 2 || def.Nodes[1].Type != api.NodeHTTPRequest {
		t.Fatalf("nodes = %+v", def.Nodes)
	}
	if def.Nodes[1].Data["url"] != "https://api.example.com/orders/{{trigger.body.orderId}}" {
		t.Fatalf("data = %v", def.Nodes[1].Data)
	}
	if def.Variables["channel"] != "#orders" {
		t.Fatalf("variables = %v", def.Variables)
	}
}

// Ensure a missing name falls back to the workflow id.
func TestLoadWorkflow_NameDefaultsToID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.yaml", `
id: ping
nodes:
  - id: hook
    type: webhook-trigger
    name: hook
`)
	def, err := LoadWorkflow(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.Name != "ping" {
		t.Fatalf("name = %q", def.Name)
	}
}

func TestLoadWorkflow_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"missing id", "name: no-id\nnodes: []\n", "missing required field 'id'"},
		{"not yaml", "{{{{", "parsing workflow file"},
		{"invalid graph", `
id: broken
nodes:
  - id: a
    type: http-request
    name: a
edges:
  - source: a
    target: ghost
`, "invalid workflow graph"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tc.name, " ", "-")+".yaml", tc.content)
			_, err := LoadWorkflow(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("err = %v, want substring %q", err, tc.wantMsg)
			}
		})
	}

	if _, err := LoadWorkflow(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWorkflows_RecursiveAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.yaml", orderFlow)
	writeFile(t, dir, "notes.txt", "not a workflow")

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "ping.yml", `
id: ping
nodes:
  - id: hook
    type: schedule-trigger
    name: hook
`)

	defs, err := LoadWorkflows(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("defs = %v", defs)
	}
	if _, ok := defs["orders"]; !ok {
		t.Fatal("orders not loaded")
	}
	if _, ok := defs["ping"]; !ok {
		t.Fatal("nested ping.yml not loaded")
	}
}

func TestLoadWorkflows_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: same\nnodes:\n  - id: hook\n    type: webhook-trigger\n    name: hook\n")
	writeFile(t, dir, "b.yaml", "id: same\nnodes:\n  - id: hook\n    type: webhook-trigger\n    name: hook\n")

	_, err := LoadWorkflows(dir)
	if err == nil || !strings.Contains(err.Error(), `duplicate workflow id "same"`) {
		t.Fatalf("err = %v", err)
	}
}
