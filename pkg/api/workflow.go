package api

import "time"

// Status represents the lifecycle state of an execution.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPaused  Status = "PAUSED"
)

// StepStatus represents the lifecycle state of a single node visit.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// NodeType identifies what a node does. The set is closed: the engine
// dispatches over it exhaustively, so adding a type means adding a handler.
type NodeType string

const (
	NodeWebhookTrigger  NodeType = "webhook-trigger"
	NodeScheduleTrigger NodeType = "schedule-trigger"
	NodeEmailTrigger    NodeType = "email-trigger"
	NodeHTTPRequest     NodeType = "http-request"
	NodeSendEmail       NodeType = "send-email"
	NodeSendTelegram    NodeType = "send-telegram"
	NodeDatabaseQuery   NodeType = "database-query"
	NodeTransform       NodeType = "transform"
	NodeCondition       NodeType = "condition"
	NodeAIRequest       NodeType = "ai-request"
)

// IsTrigger reports whether t is one of the trigger node types.
func (t NodeType) IsTrigger() bool {
	switch t {
	case NodeWebhookTrigger, NodeScheduleTrigger, NodeEmailTrigger:
		return true
	}
	return false
}

// Known reports whether t is part of the closed node type set.
func (t NodeType) Known() bool {
	switch t {
	case NodeWebhookTrigger, NodeScheduleTrigger, NodeEmailTrigger,
		NodeHTTPRequest, NodeSendEmail, NodeSendTelegram,
		NodeDatabaseQuery, NodeTransform, NodeCondition, NodeAIRequest:
		return true
	}
	return false
}

// RetryConfig controls how a node is retried when its handler fails.
//
// MaxAttempts is the total attempt budget including the first call; the
// zero value means a single attempt and no retries. Attempt n (n > 1) waits
//
//	min(InitialDelayMs * BackoffMultiplier^(n-2), MaxDelayMs)
//
// before re-invoking the handler.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"maxAttempts" json:"maxAttempts"`
	InitialDelayMs    int     `yaml:"initialDelayMs" json:"initialDelayMs"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier" json:"backoffMultiplier"`
	MaxDelayMs        int     `yaml:"maxDelayMs" json:"maxDelayMs"`
}

// Node is one vertex of a workflow graph. Data carries type-specific
// configuration; its keys are interpreted by the handler for Type.
type Node struct {
	ID   string         `yaml:"id" json:"id"`
	Type NodeType       `yaml:"type" json:"type"`
	Name string         `yaml:"name" json:"name"`
	Data map[string]any `yaml:"data" json:"data"`

	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`

	// ContinueOnFail marks the node non-fatal: exhausted retries log an
	// error step but the run proceeds to the remaining branches.
	// The default (false) fails the whole execution.
	ContinueOnFail bool `yaml:"continueOnFail,omitempty" json:"continueOnFail,omitempty"`
}

// Edge connects two nodes. SourceHandle is used by condition nodes to name
// the "true" or "false" branch.
type Edge struct {
	Source       string `yaml:"source" json:"source"`
	Target       string `yaml:"target" json:"target"`
	SourceHandle string `yaml:"sourceHandle,omitempty" json:"sourceHandle,omitempty"`
	TargetHandle string `yaml:"targetHandle,omitempty" json:"targetHandle,omitempty"`
}

// WorkflowDefinition is one immutable version of a workflow graph.
// A new version is a new definition, never a mutation in place.
type WorkflowDefinition struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Nodes     []Node         `yaml:"nodes" json:"nodes"`
	Edges     []Edge         `yaml:"edges" json:"edges"`
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// TriggerNode returns the definition's trigger node, if present.
func (d *WorkflowDefinition) TriggerNode() (Node, bool) {
	for _, n := range d.Nodes {
		if n.Type.IsTrigger() {
			return n, true
		}
	}
	return Node{}, false
}

// NodeByID returns the node with the given id, if present.
func (d *WorkflowDefinition) NodeByID(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// TriggerEvent is the normalized "trigger fired" input handed to the engine.
// Delivery collaborators (webhook server, scheduler, mail receiver) build it;
// webhook delivery verifies any configured signature before handing it over.
type TriggerEvent struct {
	WorkflowID string            `json:"workflowId"`
	Body       any               `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
	Query      map[string]string `json:"query,omitempty"`
	Method     string            `json:"method,omitempty"`
}

// Execution is the durable record of one run. It is created when a trigger
// fires, mutated only by the engine, and immutable once terminal except for
// an explicit Resume transitioning PAUSED back to RUNNING.
type Execution struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflowId"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Input      any        `json:"input,omitempty"`
	Output     any        `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// StepLog is the append-only record of one node visit (including skipped
// branches). Only the final retry attempt of a node is retained.
type StepLog struct {
	ID          string        `json:"id"`
	ExecutionID string        `json:"executionId"`
	NodeID      string        `json:"nodeId"`
	NodeName    string        `json:"nodeName"`
	Status      StepStatus    `json:"status"`
	Input       any           `json:"input,omitempty"`
	Output      any           `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}
