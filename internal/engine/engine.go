// Package engine orchestrates workflow runs: graph traversal, node
// dispatch, retry application, step logging and event emission.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/datactx"
	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/nodes"
	"github.com/weftlabs/weft/pkg/api"
)

// Config describes how to construct an Engine.
type Config struct {
	Workflows  api.WorkflowStore
	Executions api.ExecutionStore

	// Emitter receives progress events; nil means NoopEmitter.
	Emitter api.Emitter

	// Nodes overrides the handler registry; nil builds the default set.
	Nodes *nodes.Registry

	// sleep is swapped out by retry tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Engine is the api.Engine implementation. Each Run is self-contained: the
// engine keeps no global registry of current executions beyond the cancel
// flags needed to honor Cancel at node boundaries.
type Engine struct {
	workflows  api.WorkflowStore
	executions api.ExecutionStore
	emitter    api.Emitter
	registry   *nodes.Registry
	sleep      func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	cancels map[string]chan struct{}
}

var _ api.Engine = (*Engine)(nil)

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = api.NoopEmitter{}
	}
	registry := cfg.Nodes
	if registry == nil {
		registry = nodes.NewRegistry(nodes.Config{})
	}
	sleep := cfg.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Engine{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		emitter:    emitter,
		registry:   registry,
		sleep:      sleep,
		cancels:    make(map[string]chan struct{}),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run executes the workflow synchronously. It returns an error only when
// the run could not be started (unknown workflow, structural error, store
// failure); node failures surface through the execution record instead.
func (e *Engine) Run(ctx context.Context, workflowID string, event api.TriggerEvent) (*api.Execution, error) {
	def, err := e.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		if errors.Is(err, api.ErrWorkflowNotFound) {
			return nil, fmt.Errorf("unknown workflow: %s", workflowID)
		}
		return nil, err
	}

	g, err := graph.Resolve(def)
	if err != nil {
		return nil, err
	}

	trigger := datactx.NormalizeTrigger(event)

	exec := &api.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     api.StatusPending,
		StartedAt:  time.Now().UTC(),
		Input:      trigger,
	}
	if err := e.executions.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	exec.Status = api.StatusRunning
	if err := e.executions.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}
	e.emitter.OnExecutionStart(ctx, exec.ID, exec.WorkflowID)

	cancel := e.registerCancel(exec.ID)
	defer e.unregisterCancel(exec.ID)

	// Templates must resolve against the exact payload persisted as the
	// execution input, so the normalized map is shared, not rebuilt.
	dctx := datactx.Rehydrate(trigger, def.Variables)
	st := &runState{skip: make(map[string]bool)}
	return e.traverseWith(ctx, g, exec, dctx, g.Order(), st, cancel)
}

// Resume continues a PAUSED execution from the first node without a step
// log, rebuilding the data context from the recorded outputs.
func (e *Engine) Resume(ctx context.Context, executionID string) (*api.Execution, error) {
	exec, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status != api.StatusPaused {
		return nil, fmt.Errorf("cannot resume execution %s in status %s", executionID, exec.Status)
	}

	def, err := e.workflows.GetWorkflow(ctx, exec.WorkflowID)
	if err != nil {
		return nil, err
	}
	g, err := graph.Resolve(def)
	if err != nil {
		return nil, err
	}

	logs, err := e.executions.ListStepLogs(ctx, executionID)
	if err != nil {
		return nil, err
	}

	dctx := datactx.Rehydrate(exec.Input, def.Variables)
	done := make(map[string]bool, len(logs))
	skipped := make(map[string]bool)
	var lastOutput any
	for _, log := range logs {
		done[log.NodeID] = true
		switch log.Status {
		case api.StepSuccess:
			dctx.Set(log.NodeID, log.Output)
			lastOutput = log.Output
		case api.StepSkipped:
			skipped[log.NodeID] = true
		}
	}

	var remaining []string
	for _, id := range g.Order() {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}

	// Re-derive skip marks for branches cut off by earlier conditions.
	for _, id := range g.Order() {
		if n, ok := g.Node(id); ok && n.Type == api.NodeCondition && done[id] {
			if out, found := dctx.Get(id); found {
				if result, ok := nodes.BranchResult(out); ok {
					for _, t := range notTaken(g, id, result) {
						skipped[t] = true
					}
				}
			}
		}
	}

	exec.Status = api.StatusRunning
	exec.Error = ""
	if err := e.executions.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}
	e.emitter.OnExecutionStart(ctx, exec.ID, exec.WorkflowID)

	cancel := e.registerCancel(exec.ID)
	defer e.unregisterCancel(exec.ID)

	st := &runState{lastOutput: lastOutput, skip: skipped}
	return e.traverseWith(ctx, g, exec, dctx, remaining, st, cancel)
}

// Cancel requests a pause: the current node finishes, no further nodes are
// dispatched. It is a no-op error if the execution is not in flight.
func (e *Engine) Cancel(executionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.cancels[executionID]
	if !ok {
		return fmt.Errorf("execution %s is not running", executionID)
	}
	select {
	case <-ch:
		// already cancelled
	default:
		close(ch)
	}
	return nil
}

func (e *Engine) GetExecution(ctx context.Context, id string) (*api.Execution, error) {
	return e.executions.GetExecution(ctx, id)
}

func (e *Engine) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.Execution, error) {
	return e.executions.ListExecutions(ctx, filter)
}

func (e *Engine) StepLogs(ctx context.Context, executionID string) ([]*api.StepLog, error) {
	return e.executions.ListStepLogs(ctx, executionID)
}

func (e *Engine) registerCancel(executionID string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{})
	e.cancels[executionID] = ch
	return ch
}

func (e *Engine) unregisterCancel(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, executionID)
}
