package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/backoff"
	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/nodes"
	"github.com/weftlabs/weft/pkg/api"
)

// runState carries the mutable traversal bookkeeping of one run.
type runState struct {
	lastOutput any
	skip       map[string]bool
}

func (e *Engine) traverseWith(
	ctx context.Context,
	g *graph.Graph,
	exec *api.Execution,
	dctx *datactx.Context,
	order []string,
	st *runState,
	cancel <-chan struct{},
) (*api.Execution, error) {
	for _, nodeID := range order {
		// Cancellation takes effect at node boundaries only: an in-flight
		// handler finishes, written step logs stay.
		select {
		case <-cancel:
			return e.finish(ctx, exec, api.StatusPaused, st.lastOutput, "")
		case <-ctx.Done():
			return e.finish(ctx, exec, api.StatusFailed, nil, ctx.Err().Error())
		default:
		}

		node, ok := g.Node(nodeID)
		if !ok {
			return e.finish(ctx, exec, api.StatusFailed, nil, fmt.Sprintf("node %s vanished from graph", nodeID))
		}

		if st.skip[nodeID] {
			if err := e.logSkipped(ctx, exec, node); err != nil {
				return e.finish(ctx, exec, api.StatusFailed, nil, err.Error())
			}
			continue
		}

		outcome := e.executeNode(ctx, g, exec, dctx, node)

		if err := e.executions.AppendStepLog(ctx, outcome.log); err != nil {
			return e.finish(ctx, exec, api.StatusFailed, nil, err.Error())
		}
		// The step-complete event fires only after the log is durable.
		e.emitter.OnStepComplete(ctx, api.StepEvent{
			ExecutionID:   exec.ID,
			NodeID:        node.ID,
			NodeName:      node.Name,
			Status:        outcome.log.Status,
			Output:        outcome.log.Output,
			Error:         outcome.log.Error,
			Duration:      outcome.log.Duration,
			RetryAttempts: outcome.retryAttempts,
		})

		if outcome.err != nil {
			if node.ContinueOnFail {
				continue
			}
			return e.finish(ctx, exec, api.StatusFailed, nil, outcome.err.Error())
		}

		dctx.Set(node.ID, outcome.output)
		st.lastOutput = outcome.output

		if node.Type == api.NodeCondition {
			result, ok := nodes.BranchResult(outcome.output)
			if !ok {
				return e.finish(ctx, exec, api.StatusFailed, nil,
					fmt.Sprintf("condition node %s produced no boolean result", node.ID))
			}
			for _, t := range notTaken(g, node.ID, result) {
				st.skip[t] = true
			}
		}
	}

	return e.finish(ctx, exec, api.StatusSuccess, st.lastOutput, "")
}

// notTaken returns the nodes reachable only through the branch the
// condition did not choose. Nodes also reachable through the chosen branch
// stay live (diamond merges).
func notTaken(g *graph.Graph, condID string, result bool) []string {
	chosen, other := "true", "false"
	if !result {
		chosen, other = other, chosen
	}

	live := make(map[string]bool)
	for _, id := range g.Reachable(condID, chosen) {
		live[id] = true
	}

	var out []string
	for _, id := range g.Reachable(condID, other) {
		if !live[id] {
			out = append(out, id)
		}
	}
	return out
}

type nodeOutcome struct {
	output        any
	err           error
	retryAttempts int
	log           *api.StepLog
}

// executeNode resolves the node's templates, enforces required fields, and
// drives the retry loop. Only the final attempt's log is returned.
func (e *Engine) executeNode(
	ctx context.Context,
	g *graph.Graph,
	exec *api.Execution,
	dctx *datactx.Context,
	node api.Node,
) nodeOutcome {
	e.emitter.OnStepStart(ctx, exec.ID, node.ID, node.Name)

	log := &api.StepLog{
		ID:          uuid.NewString(),
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		Status:      api.StepRunning,
		CreatedAt:   time.Now().UTC(),
	}

	fail := func(start time.Time, attempts int, err error) nodeOutcome {
		log.Status = api.StepError
		log.Error = err.Error()
		log.Duration = time.Since(start)
		return nodeOutcome{err: err, retryAttempts: attempts, log: log}
	}

	start := time.Now()

	handler, ok := e.registry.Handler(node.Type)
	if !ok {
		return fail(start, 0, fmt.Errorf("no handler for node type %s", node.Type))
	}

	resolved := dctx.ResolveMap(node.Data)
	log.Input = resolved

	if err := checkRequired(node, handler, resolved); err != nil {
		return fail(start, 0, err)
	}

	input := predecessorInput(g, dctx, node.ID)
	req := nodes.Request{Node: node, Data: resolved, Input: input, Ctx: dctx}

	policy := backoff.FromConfig(node.Retry)

	var lastErr error
	attemptStart := start
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if delay := policy.Delay(attempt); delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				return fail(attemptStart, attempt-1, err)
			}
		}

		attemptStart = time.Now()
		output, err := handler.Execute(ctx, req)
		if err == nil {
			log.Status = api.StepSuccess
			log.Output = output
			log.Duration = time.Since(attemptStart)
			return nodeOutcome{output: output, retryAttempts: attempt - 1, log: log}
		}

		lastErr = err

		// Security and validation failures are deterministic; retrying
		// cannot change the outcome.
		if !api.Retryable(err) {
			return fail(attemptStart, attempt-1, err)
		}
	}

	return fail(attemptStart, policy.MaxAttempts-1, lastErr)
}

// predecessorInput picks the node's direct input: the output of its first
// incoming edge whose source has already produced one, or the trigger
// payload when nothing upstream has run (nodes directly after the trigger).
func predecessorInput(g *graph.Graph, dctx *datactx.Context, nodeID string) any {
	for _, edge := range g.Incoming(nodeID) {
		if out, ok := dctx.Get(edge.Source); ok {
			return out
		}
	}
	trigger, _ := dctx.Get(datactx.TriggerKey)
	return trigger
}

// checkRequired enforces the handler's required fields plus any extra
// names listed in the node's "requiredFields" configuration.
func checkRequired(node api.Node, handler nodes.Handler, resolved map[string]any) error {
	required := handler.Required()
	if extra, ok := node.Data["requiredFields"].([]any); ok {
		for _, f := range extra {
			if s, ok := f.(string); ok {
				required = append(required, s)
			}
		}
	}
	for _, field := range required {
		v, ok := resolved[field]
		if !ok || v == nil || v == "" {
			return &api.ValidationError{NodeID: node.ID, Field: field, Reason: "required field is unresolved"}
		}
	}
	return nil
}

func (e *Engine) logSkipped(ctx context.Context, exec *api.Execution, node api.Node) error {
	e.emitter.OnStepStart(ctx, exec.ID, node.ID, node.Name)
	log := &api.StepLog{
		ID:          uuid.NewString(),
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		Status:      api.StepSkipped,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.executions.AppendStepLog(ctx, log); err != nil {
		return err
	}
	e.emitter.OnStepComplete(ctx, api.StepEvent{
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		Status:      api.StepSkipped,
	})
	return nil
}

// finish writes the terminal (or paused) state and emits the completion
// event after the update is durable. Run-level failures are reported via
// the execution record, not as Go errors.
func (e *Engine) finish(ctx context.Context, exec *api.Execution, status api.Status, output any, errMsg string) (*api.Execution, error) {
	now := time.Now().UTC()
	exec.Status = status
	exec.Error = errMsg
	if status == api.StatusSuccess {
		exec.Output = output
	}
	if status != api.StatusPaused {
		exec.FinishedAt = &now
	}

	if err := e.executions.UpdateExecution(ctx, exec); err != nil {
		return exec, err
	}

	e.emitter.OnExecutionComplete(ctx, api.ExecutionEvent{
		ExecutionID:   exec.ID,
		WorkflowID:    exec.WorkflowID,
		Status:        status,
		Output:        exec.Output,
		Error:         exec.Error,
		FinishedAt:    now,
		TotalDuration: now.Sub(exec.StartedAt),
	})
	return exec, nil
}
