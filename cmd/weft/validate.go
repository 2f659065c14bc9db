package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate workflow files without running them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  validateWorkflows,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateWorkflows(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		def, err := loader.LoadWorkflow(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d nodes, %d edges)\n", def.ID, len(def.Nodes), len(def.Edges))
		return nil
	}

	defs, err := loader.LoadWorkflows(workflowsDir)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return fmt.Errorf("no workflow files found in %s", workflowsDir)
	}
	for id, def := range defs {
		fmt.Printf("%s: ok (%d nodes, %d edges)\n", id, len(def.Nodes), len(def.Edges))
	}
	return nil
}
