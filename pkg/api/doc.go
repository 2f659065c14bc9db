// Package api defines the public types of the weft workflow engine: the
// graph model (WorkflowDefinition, Node, Edge), the durable run records
// (Execution, StepLog), the store and emitter contracts, and the error
// taxonomy. The root weft package re-exports the commonly used names so
// most callers never import this package directly.
package api
