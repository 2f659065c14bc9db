package api

import "context"

// WorkflowStore loads workflow definitions. Implementations are provided by
// the persistence collaborator; the engine only reads.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (WorkflowDefinition, error)
}

// ExecutionStore persists executions and their step logs.
//
// AppendStepLog must be durable before the corresponding step event is
// emitted; the engine relies on that ordering so observers never see a step
// whose terminal log has not been written.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error)

	AppendStepLog(ctx context.Context, log *StepLog) error
	ListStepLogs(ctx context.Context, executionID string) ([]*StepLog, error)
}

// ExecutionFilter selects executions from the store.
// Zero values mean "no filter" for that field.
type ExecutionFilter struct {
	WorkflowID string
	Status     Status
}

// Engine runs workflows in response to trigger events.
//
// Each Run is one independent unit of work; many runs may be in flight
// concurrently. Node-level failures never escape Run as panics or raw
// errors: callers observe only Execution/StepLog state and emitted events.
// Run returns an error only when the run could not be started at all
// (unknown workflow, structural error, store failure).
type Engine interface {
	// Run executes the workflow synchronously and returns the terminal
	// execution record.
	Run(ctx context.Context, workflowID string, event TriggerEvent) (*Execution, error)

	// Cancel requests a pause of an in-flight execution. It takes effect at
	// the next node boundary: the current handler finishes, no further nodes
	// are dispatched, and the execution transitions to PAUSED.
	Cancel(executionID string) error

	// Resume transitions a PAUSED execution back to RUNNING and continues
	// from the first node that has no step log yet.
	Resume(ctx context.Context, executionID string) (*Execution, error)

	// GetExecution looks up an execution by ID.
	GetExecution(ctx context.Context, id string) (*Execution, error)

	// ListExecutions returns executions matching the given filter.
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error)

	// StepLogs returns the append-only step records of an execution.
	StepLogs(ctx context.Context, executionID string) ([]*StepLog, error)
}
