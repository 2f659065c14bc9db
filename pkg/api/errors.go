package api

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound is returned when a workflow definition is not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound is returned when an execution is not found.
	ErrExecutionNotFound = errors.New("execution not found")
)

// StructuralError reports an invalid workflow graph (cycle, dangling edge,
// missing or duplicated trigger). It fails at load time; a run is never
// started from a structurally invalid definition.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "invalid workflow graph: " + e.Reason
}

// NewStructuralError builds a StructuralError with a formatted reason.
func NewStructuralError(format string, args ...any) error {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a node whose templated configuration could not be
// resolved (required field unresolved, malformed expression). It fails the
// node before its handler runs and is never retried.
type ValidationError struct {
	NodeID string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("node %s: field %q: %s", e.NodeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Reason)
}

// SecurityError reports an egress attempt rejected by the URL safety
// validator. It fails the node immediately, is never retried, and its
// message is surfaced verbatim in the step log and execution error.
type SecurityError struct {
	URL    string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("blocked url %q: %s", e.URL, e.Reason)
}

// Retryable reports whether a node failure may be retried under the node's
// retry policy. Validation and security failures are local and deterministic,
// so retrying them cannot succeed; everything else (timeouts, non-2xx
// responses, downstream errors) is considered transient.
func Retryable(err error) bool {
	var ve *ValidationError
	var se *SecurityError
	if errors.As(err, &ve) || errors.As(err, &se) {
		return false
	}
	return true
}
