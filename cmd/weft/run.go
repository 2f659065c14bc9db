package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/loader"
	"github.com/weftlabs/weft/pkg/api"
)

var (
	bodyJSON  string
	withSteps bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Execute a workflow once with a synthetic trigger event",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&bodyJSON, "body", "{}", "JSON body for the trigger event")
	runCmd.Flags().BoolVar(&withSteps, "steps", false, "include step logs in the output")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	workflowID := args[0]

	defs, err := loader.LoadWorkflows(workflowsDir)
	if err != nil {
		return fmt.Errorf("loading workflows: %w", err)
	}
	if _, ok := defs[workflowID]; !ok {
		return fmt.Errorf("workflow %q not found in %s", workflowID, workflowsDir)
	}

	var body any
	if err := json.Unmarshal([]byte(bodyJSON), &body); err != nil {
		return fmt.Errorf("parsing trigger body: %w", err)
	}

	logger := newLogger(logLevel)
	eng, err := buildEngine(weft.NewLoggingEmitter(logger), defs, dbPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	exec, err := eng.Run(ctx, workflowID, api.TriggerEvent{
		WorkflowID: workflowID,
		Body:       body,
		Method:     "CLI",
	})
	if err != nil {
		return err
	}

	out := map[string]any{"execution": exec}
	if withSteps {
		logs, err := eng.StepLogs(ctx, exec.ID)
		if err != nil {
			return err
		}
		out["steps"] = logs
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
