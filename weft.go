package weft

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/internal/emitter"
	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/persistence"
	"github.com/weftlabs/weft/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	WorkflowDefinition   = api.WorkflowDefinition
	Node                 = api.Node
	Edge                 = api.Edge
	NodeType             = api.NodeType
	RetryConfig          = api.RetryConfig
	TriggerEvent         = api.TriggerEvent
	Execution            = api.Execution
	StepLog              = api.StepLog
	Status               = api.Status
	StepStatus           = api.StepStatus
	ExecutionFilter      = api.ExecutionFilter
	Emitter              = api.Emitter
	StepEvent            = api.StepEvent
	ExecutionEvent       = api.ExecutionEvent
	LoggingEmitter       = api.LoggingEmitter
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeEmitter     = api.CompositeEmitter
	NoopEmitter          = api.NoopEmitter
)

// Re-export common emitter helpers.

var (
	NewLoggingEmitter   = api.NewLoggingEmitter
	NewCompositeEmitter = api.NewCompositeEmitter
	NewRedisEmitter     = emitter.NewRedisEmitter
)

// Re-export status values for convenience.

const (
	StatusPending = api.StatusPending
	StatusRunning = api.StatusRunning
	StatusSuccess = api.StatusSuccess
	StatusFailed  = api.StatusFailed
	StatusPaused  = api.StatusPaused
)

// Re-export node types for convenience.

const (
	NodeWebhookTrigger  = api.NodeWebhookTrigger
	NodeScheduleTrigger = api.NodeScheduleTrigger
	NodeEmailTrigger    = api.NodeEmailTrigger
	NodeHTTPRequest     = api.NodeHTTPRequest
	NodeSendEmail       = api.NodeSendEmail
	NodeSendTelegram    = api.NodeSendTelegram
	NodeDatabaseQuery   = api.NodeDatabaseQuery
	NodeTransform       = api.NodeTransform
	NodeCondition       = api.NodeCondition
	NodeAIRequest       = api.NodeAIRequest
)

// Engine constructors
// These wrap the internal packages so external callers never need to
// import them. Workflow definitions passed to a constructor are
// registered before the engine is returned.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine(defs ...WorkflowDefinition) Engine {
	return NewInMemoryEngineWithEmitter(nil, defs...)
}

// NewInMemoryEngineWithEmitter returns an in-memory Engine with the given Emitter.
func NewInMemoryEngineWithEmitter(em Emitter, defs ...WorkflowDefinition) Engine {
	store := persistence.NewMemoryStore()
	for _, def := range defs {
		store.PutWorkflow(def)
	}
	return engine.New(engine.Config{Workflows: store, Executions: store, Emitter: em})
}

// NewSQLiteEngine returns an Engine that persists workflows, executions
// and step logs in a SQLite database.
func NewSQLiteEngine(db *sql.DB, defs ...WorkflowDefinition) (Engine, error) {
	return NewSQLiteEngineWithEmitter(db, nil, defs...)
}

// NewSQLiteEngineWithEmitter returns a SQLite-backed Engine with the given Emitter.
func NewSQLiteEngineWithEmitter(db *sql.DB, em Emitter, defs ...WorkflowDefinition) (Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := store.PutWorkflow(context.Background(), def); err != nil {
			return nil, err
		}
	}
	return engine.New(engine.Config{Workflows: store, Executions: store, Emitter: em}), nil
}

// NewPostgresEngine returns an Engine that persists in PostgreSQL.
func NewPostgresEngine(db *sql.DB, defs ...WorkflowDefinition) (Engine, error) {
	return NewPostgresEngineWithEmitter(db, nil, defs...)
}

// NewPostgresEngineWithEmitter returns a Postgres-backed Engine with the given Emitter.
func NewPostgresEngineWithEmitter(db *sql.DB, em Emitter, defs ...WorkflowDefinition) (Engine, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := store.PutWorkflow(context.Background(), def); err != nil {
			return nil, err
		}
	}
	return engine.New(engine.Config{Workflows: store, Executions: store, Emitter: em}), nil
}

// NewRedisEngine returns an Engine that persists in Redis. prefix may be
// empty for the default key prefix.
func NewRedisEngine(client *redis.Client, prefix string, defs ...WorkflowDefinition) (Engine, error) {
	return NewRedisEngineWithEmitter(client, prefix, nil, defs...)
}

// NewRedisEngineWithEmitter returns a Redis-backed Engine with the given Emitter.
func NewRedisEngineWithEmitter(client *redis.Client, prefix string, em Emitter, defs ...WorkflowDefinition) (Engine, error) {
	store := persistence.NewRedisStore(client, prefix)
	for _, def := range defs {
		if err := store.PutWorkflow(context.Background(), def); err != nil {
			return nil, err
		}
	}
	return engine.New(engine.Config{Workflows: store, Executions: store, Emitter: em}), nil
}

// Convenience helpers that just forward to the underlying Engine.

// Run runs a registered workflow synchronously.
func Run(ctx context.Context, eng Engine, workflowID string, event TriggerEvent) (*Execution, error) {
	return eng.Run(ctx, workflowID, event)
}

// GetExecution fetches an execution by ID.
func GetExecution(ctx context.Context, eng Engine, id string) (*Execution, error) {
	return eng.GetExecution(ctx, id)
}

// ListExecutions lists executions matching the given filter.
func ListExecutions(ctx context.Context, eng Engine, filter ExecutionFilter) ([]*Execution, error) {
	return eng.ListExecutions(ctx, filter)
}

// StepLogs returns the ordered step logs for an execution.
func StepLogs(ctx context.Context, eng Engine, executionID string) ([]*StepLog, error) {
	return eng.StepLogs(ctx, executionID)
}

// Resume restarts a paused execution from its first unexecuted node.
func Resume(ctx context.Context, eng Engine, executionID string) (*Execution, error) {
	return eng.Resume(ctx, executionID)
}
