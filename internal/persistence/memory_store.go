package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/weftlabs/weft/pkg/api"
)

// MemoryStore is a goroutine-safe WorkflowStore and ExecutionStore backed
// by maps. Nothing survives a restart; use it for tests and embedding.
type MemoryStore struct {
	mu         sync.RWMutex
	workflows  map[string]api.WorkflowDefinition
	executions map[string]*api.Execution
	stepLogs   map[string][]*api.StepLog // keyed by execution id
}

var (
	_ api.WorkflowStore  = (*MemoryStore)(nil)
	_ api.ExecutionStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows:  make(map[string]api.WorkflowDefinition),
		executions: make(map[string]*api.Execution),
		stepLogs:   make(map[string][]*api.StepLog),
	}
}

// PutWorkflow registers a definition under its ID. It is not part of the
// engine-facing contract; delivery surfaces use it to seed workflows.
func (s *MemoryStore) PutWorkflow(def api.WorkflowDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[def.ID] = def
}

func (s *MemoryStore) GetWorkflow(ctx context.Context, id string) (api.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.workflows[id]
	if !ok {
		return api.WorkflowDefinition{}, api.ErrWorkflowNotFound
	}
	return def, nil
}

func (s *MemoryStore) SaveExecution(ctx context.Context, exec *api.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateExecution(ctx context.Context, exec *api.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[exec.ID]; !ok {
		return api.ErrExecutionNotFound
	}
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, id string) (*api.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[id]
	if !ok {
		return nil, api.ErrExecutionNotFound
	}
	cp := *exec
	return &cp, nil
}

func (s *MemoryStore) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Execution
	for _, exec := range s.executions {
		if filter.WorkflowID != "" && exec.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		cp := *exec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func (s *MemoryStore) AppendStepLog(ctx context.Context, log *api.StepLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *log
	s.stepLogs[log.ExecutionID] = append(s.stepLogs[log.ExecutionID], &cp)
	return nil
}

func (s *MemoryStore) ListStepLogs(ctx context.Context, executionID string) ([]*api.StepLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.stepLogs[executionID]
	out := make([]*api.StepLog, len(logs))
	for i, l := range logs {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}
