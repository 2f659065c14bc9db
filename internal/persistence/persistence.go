// Package persistence provides the built-in store backends: in-memory for
// tests and embedding, SQLite for single-binary durability, Postgres for
// shared deployments and Redis for ephemeral fan-out setups. All of them
// implement the api.WorkflowStore / api.ExecutionStore contracts; external
// collaborators may supply their own.
package persistence

import "github.com/weftlabs/weft/pkg/api"

// Stores bundles the two store contracts an engine needs.
type Stores struct {
	Workflows  api.WorkflowStore
	Executions api.ExecutionStore
}
