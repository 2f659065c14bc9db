// Package loader reads workflow definitions from YAML files.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/pkg/api"
)

// LoadWorkflow reads and parses a single YAML workflow file, validating
// its graph structure before returning it.
func LoadWorkflow(path string) (api.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.WorkflowDefinition{}, fmt.Errorf("reading workflow file %s: %w", path, err)
	}

	var def api.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return api.WorkflowDefinition{}, fmt.Errorf("parsing workflow file %s: %w", path, err)
	}

	if def.ID == "" {
		return api.WorkflowDefinition{}, fmt.Errorf("workflow file %s: missing required field 'id'", path)
	}
	if def.Name == "" {
		def.Name = def.ID
	}

	if _, err := graph.Resolve(def); err != nil {
		return api.WorkflowDefinition{}, fmt.Errorf("workflow file %s: %w", path, err)
	}

	return def, nil
}

// LoadWorkflows reads all YAML workflow files from a directory, recursively.
// Definitions are keyed by workflow ID; duplicates are an error.
func LoadWorkflows(dir string) (map[string]api.WorkflowDefinition, error) {
	defs := make(map[string]api.WorkflowDefinition)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		def, err := LoadWorkflow(path)
		if err != nil {
			return err
		}
		if _, exists := defs[def.ID]; exists {
			return fmt.Errorf("duplicate workflow id %q in %s", def.ID, path)
		}
		defs[def.ID] = def
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading workflows from %s: %w", dir, err)
	}

	return defs, nil
}
