package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/api"
)

// RedisStore is a WorkflowStore and ExecutionStore backed by Redis. Key
// structure:
//
//	<prefix>wf:<id>              => JSON workflow definition
//	<prefix>exec:<id>            => JSON execution record
//	<prefix>steps:<executionID>  => LIST of JSON step logs (append-only)
//	<prefix>idx:all              => SET of execution IDs
//	<prefix>idx:wf:<workflowID>  => SET of execution IDs for a workflow
//
// Indexes are always updated on Save/Update; ListExecutions filters by
// status client-side since status changes over an execution's lifetime.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var (
	_ api.WorkflowStore  = (*RedisStore)(nil)
	_ api.ExecutionStore = (*RedisStore)(nil)
)

// NewRedisStore creates a RedisStore. prefix is optional but recommended
// (e.g. "weft:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "weft:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keyWorkflow(id string) string  { return s.prefix + "wf:" + id }
func (s *RedisStore) keyExecution(id string) string { return s.prefix + "exec:" + id }
func (s *RedisStore) keySteps(id string) string     { return s.prefix + "steps:" + id }
func (s *RedisStore) keyAll() string                { return s.prefix + "idx:all" }
func (s *RedisStore) keyByWorkflow(id string) string {
	return s.prefix + "idx:wf:" + id
}

// PutWorkflow stores a workflow definition under its ID.
func (s *RedisStore) PutWorkflow(ctx context.Context, def api.WorkflowDefinition) error {
	blob, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyWorkflow(def.ID), blob, 0).Err()
}

func (s *RedisStore) GetWorkflow(ctx context.Context, id string) (api.WorkflowDefinition, error) {
	blob, err := s.client.Get(ctx, s.keyWorkflow(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return api.WorkflowDefinition{}, api.ErrWorkflowNotFound
	}
	if err != nil {
		return api.WorkflowDefinition{}, err
	}
	var def api.WorkflowDefinition
	if err := json.Unmarshal(blob, &def); err != nil {
		return api.WorkflowDefinition{}, err
	}
	return def, nil
}

func (s *RedisStore) SaveExecution(ctx context.Context, exec *api.Execution) error {
	blob, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyExecution(exec.ID), blob, 0)
	pipe.SAdd(ctx, s.keyAll(), exec.ID)
	pipe.SAdd(ctx, s.keyByWorkflow(exec.WorkflowID), exec.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) UpdateExecution(ctx context.Context, exec *api.Execution) error {
	exists, err := s.client.Exists(ctx, s.keyExecution(exec.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return api.ErrExecutionNotFound
	}
	return s.SaveExecution(ctx, exec)
}

func (s *RedisStore) GetExecution(ctx context.Context, id string) (*api.Execution, error) {
	blob, err := s.client.Get(ctx, s.keyExecution(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, api.ErrExecutionNotFound
	}
	if err != nil {
		return nil, err
	}
	var exec api.Execution
	if err := json.Unmarshal(blob, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (s *RedisStore) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.Execution, error) {
	key := s.keyAll()
	if filter.WorkflowID != "" {
		key = s.keyByWorkflow(filter.WorkflowID)
	}
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*api.Execution, 0, len(ids))
	for _, id := range ids {
		exec, err := s.GetExecution(ctx, id)
		if errors.Is(err, api.ErrExecutionNotFound) {
			continue // index entry outlived the record
		}
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		result = append(result, exec)
	}
	sortExecutions(result)
	return result, nil
}

func (s *RedisStore) AppendStepLog(ctx context.Context, log *api.StepLog) error {
	blob, err := json.Marshal(log)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.keySteps(log.ExecutionID), blob).Err()
}

func (s *RedisStore) ListStepLogs(ctx context.Context, executionID string) ([]*api.StepLog, error) {
	blobs, err := s.client.LRange(ctx, s.keySteps(executionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]*api.StepLog, 0, len(blobs))
	for _, blob := range blobs {
		var log api.StepLog
		if err := json.Unmarshal([]byte(blob), &log); err != nil {
			return nil, err
		}
		result = append(result, &log)
	}
	return result, nil
}

func sortExecutions(execs []*api.Execution) {
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].StartedAt.Before(execs[j].StartedAt)
	})
}

// Expire sets a TTL on all keys of a finished execution so ephemeral
// deployments can bound memory.
func (s *RedisStore) Expire(ctx context.Context, executionID string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Expire(ctx, s.keyExecution(executionID), ttl)
	pipe.Expire(ctx, s.keySteps(executionID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}
