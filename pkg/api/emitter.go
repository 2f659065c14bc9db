package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// StepEvent carries the payload of a step-complete notification.
type StepEvent struct {
	ExecutionID   string        `json:"executionId"`
	NodeID        string        `json:"nodeId"`
	NodeName      string        `json:"nodeName"`
	Status        StepStatus    `json:"status"`
	Output        any           `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	RetryAttempts int           `json:"retryAttempts,omitempty"`
}

// ExecutionEvent carries the payload of an execution-complete notification.
type ExecutionEvent struct {
	ExecutionID   string        `json:"executionId"`
	WorkflowID    string        `json:"workflowId"`
	Status        Status        `json:"status"`
	Output        any           `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	FinishedAt    time.Time     `json:"finishedAt"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Emitter receives real-time progress callbacks from the engine.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay workflow execution. The engine emits a
// step-complete only after the step's log has been durably appended.
type Emitter interface {
	// OnExecutionStart is called once per run, after the execution record
	// is saved and before the first node is dispatched.
	OnExecutionStart(ctx context.Context, executionID, workflowID string)

	// OnStepStart is called before a node's templated fields are resolved.
	OnStepStart(ctx context.Context, executionID, nodeID, nodeName string)

	// OnStepComplete is called after the node's final attempt, for success,
	// error and skipped outcomes alike.
	OnStepComplete(ctx context.Context, ev StepEvent)

	// OnExecutionComplete is called once per run when it reaches a terminal
	// or paused state.
	OnExecutionComplete(ctx context.Context, ev ExecutionEvent)
}

// NoopEmitter is an Emitter that does nothing.
// It is used as the default when no emitter is configured.
type NoopEmitter struct{}

func (NoopEmitter) OnExecutionStart(ctx context.Context, executionID, workflowID string)  {}
func (NoopEmitter) OnStepStart(ctx context.Context, executionID, nodeID, nodeName string) {}
func (NoopEmitter) OnStepComplete(ctx context.Context, ev StepEvent)                      {}
func (NoopEmitter) OnExecutionComplete(ctx context.Context, ev ExecutionEvent)            {}

// CompositeEmitter fans out events to multiple emitters.
type CompositeEmitter struct {
	emitters []Emitter
}

// NewCompositeEmitter creates an Emitter that forwards events to each
// non-nil emitter in ems.
func NewCompositeEmitter(ems ...Emitter) Emitter {
	filtered := make([]Emitter, 0, len(ems))
	for _, e := range ems {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return NoopEmitter{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeEmitter{emitters: filtered}
}

func (c *CompositeEmitter) OnExecutionStart(ctx context.Context, executionID, workflowID string) {
	for _, e := range c.emitters {
		e.OnExecutionStart(ctx, executionID, workflowID)
	}
}

func (c *CompositeEmitter) OnStepStart(ctx context.Context, executionID, nodeID, nodeName string) {
	for _, e := range c.emitters {
		e.OnStepStart(ctx, executionID, nodeID, nodeName)
	}
}

func (c *CompositeEmitter) OnStepComplete(ctx context.Context, ev StepEvent) {
	for _, e := range c.emitters {
		e.OnStepComplete(ctx, ev)
	}
}

func (c *CompositeEmitter) OnExecutionComplete(ctx context.Context, ev ExecutionEvent) {
	for _, e := range c.emitters {
		e.OnExecutionComplete(ctx, ev)
	}
}

// LoggingEmitter writes structured logs using log/slog.
type LoggingEmitter struct {
	Logger *slog.Logger
}

// NewLoggingEmitter creates an Emitter that logs execution / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingEmitter(logger *slog.Logger) Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEmitter{Logger: logger}
}

func (o *LoggingEmitter) OnExecutionStart(ctx context.Context, executionID, workflowID string) {
	o.Logger.InfoContext(ctx, "execution_start",
		slog.String("execution_id", executionID),
		slog.String("workflow_id", workflowID),
	)
}

func (o *LoggingEmitter) OnStepStart(ctx context.Context, executionID, nodeID, nodeName string) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("execution_id", executionID),
		slog.String("node_id", nodeID),
		slog.String("node", nodeName),
	)
}

func (o *LoggingEmitter) OnStepComplete(ctx context.Context, ev StepEvent) {
	level := slog.LevelDebug
	if ev.Status == StepError {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_complete",
		slog.String("execution_id", ev.ExecutionID),
		slog.String("node_id", ev.NodeID),
		slog.String("node", ev.NodeName),
		slog.String("status", string(ev.Status)),
		slog.Duration("duration", ev.Duration),
		slog.Int("retry_attempts", ev.RetryAttempts),
		slog.String("error", ev.Error),
	)
}

func (o *LoggingEmitter) OnExecutionComplete(ctx context.Context, ev ExecutionEvent) {
	level := slog.LevelInfo
	if ev.Status == StatusFailed {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "execution_complete",
		slog.String("execution_id", ev.ExecutionID),
		slog.String("workflow_id", ev.WorkflowID),
		slog.String("status", string(ev.Status)),
		slog.Duration("total_duration", ev.TotalDuration),
		slog.String("error", ev.Error),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Emitter, and can be combined with LoggingEmitter via
// NewCompositeEmitter.
type BasicMetrics struct {
	NoopEmitter

	executionsStarted   atomic.Int64
	executionsSucceeded atomic.Int64
	executionsFailed    atomic.Int64
	stepsCompleted      atomic.Int64
	totalStepDuration   atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ExecutionsStarted   int64
	ExecutionsSucceeded int64
	ExecutionsFailed    int64
	ExecutionsInFlight  int64

	StepsCompleted  int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnExecutionStart(ctx context.Context, executionID, workflowID string) {
	m.executionsStarted.Add(1)
}

func (m *BasicMetrics) OnStepComplete(ctx context.Context, ev StepEvent) {
	// Only successful steps count toward the average duration.
	if ev.Status == StepSuccess {
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(ev.Duration.Nanoseconds())
	}
}

func (m *BasicMetrics) OnExecutionComplete(ctx context.Context, ev ExecutionEvent) {
	switch ev.Status {
	case StatusSuccess:
		m.executionsSucceeded.Add(1)
	case StatusFailed:
		m.executionsFailed.Add(1)
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.executionsStarted.Load()
	succeeded := m.executionsSucceeded.Load()
	failed := m.executionsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		ExecutionsStarted:   started,
		ExecutionsSucceeded: succeeded,
		ExecutionsFailed:    failed,
		ExecutionsInFlight:  started - succeeded - failed,
		StepsCompleted:      steps,
		AvgStepDuration:     avg,
	}
}
