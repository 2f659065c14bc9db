package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/weftlabs/weft/pkg/api"
)

// PostgresStore is a WorkflowStore and ExecutionStore backed by PostgreSQL.
//
// It expects an *sql.DB using a Postgres driver; the caller imports it, e.g.:
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
type PostgresStore struct {
	db *sql.DB
}

var (
	_ api.WorkflowStore  = (*PostgresStore)(nil)
	_ api.ExecutionStore = (*PostgresStore)(nil)
)

// NewPostgresStore initializes the schema in db and returns the store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS weft_workflows (
			id TEXT PRIMARY KEY,
			definition BYTEA NOT NULL
		);
		CREATE TABLE IF NOT EXISTS weft_executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			input BYTEA,
			output BYTEA,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS weft_step_logs (
			id TEXT PRIMARY KEY,
			execution_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			status TEXT NOT NULL,
			input BYTEA,
			output BYTEA,
			error TEXT NOT NULL DEFAULT '',
			duration_ns BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_weft_executions_workflow ON weft_executions(workflow_id);
		CREATE INDEX IF NOT EXISTS idx_weft_step_logs_execution ON weft_step_logs(execution_id);`,
	)
	return err
}

// PutWorkflow stores a workflow definition under its ID.
func (s *PostgresStore) PutWorkflow(ctx context.Context, def api.WorkflowDefinition) error {
	blob, err := encodeValue(def)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weft_workflows (id, definition) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition`,
		def.ID, blob,
	)
	return err
}

func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (api.WorkflowDefinition, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM weft_workflows WHERE id = $1`, id,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return api.WorkflowDefinition{}, api.ErrWorkflowNotFound
	}
	if err != nil {
		return api.WorkflowDefinition{}, err
	}

	var def api.WorkflowDefinition
	if err := decodeInto(blob, &def); err != nil {
		return api.WorkflowDefinition{}, err
	}
	return def, nil
}

func (s *PostgresStore) SaveExecution(ctx context.Context, exec *api.Execution) error {
	input, err := encodeValue(exec.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(exec.Output)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weft_executions (id, workflow_id, status, started_at, finished_at, input, output, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exec.ID,
		exec.WorkflowID,
		string(exec.Status),
		exec.StartedAt,
		exec.FinishedAt,
		input,
		output,
		exec.Error,
	)
	return err
}

func (s *PostgresStore) UpdateExecution(ctx context.Context, exec *api.Execution) error {
	input, err := encodeValue(exec.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(exec.Output)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE weft_executions
		SET workflow_id = $1, status = $2, started_at = $3, finished_at = $4, input = $5, output = $6, error = $7
		WHERE id = $8`,
		exec.WorkflowID,
		string(exec.Status),
		exec.StartedAt,
		exec.FinishedAt,
		input,
		output,
		exec.Error,
		exec.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrExecutionNotFound
	}
	return nil
}

func (s *PostgresStore) GetExecution(ctx context.Context, id string) (*api.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, started_at, finished_at, input, output, error
		FROM weft_executions WHERE id = $1`, id,
	)
	exec, err := scanPgExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrExecutionNotFound
	}
	return exec, err
}

func (s *PostgresStore) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.Execution, error) {
	query := `
		SELECT id, workflow_id, status, started_at, finished_at, input, output, error
		FROM weft_executions WHERE TRUE`
	var args []any
	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		query += " AND workflow_id = $1"
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		if len(args) == 1 {
			query += " AND status = $1"
		} else {
			query += " AND status = $2"
		}
	}
	query += " ORDER BY started_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*api.Execution
	for rows.Next() {
		exec, err := scanPgExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, exec)
	}
	return result, rows.Err()
}

func (s *PostgresStore) AppendStepLog(ctx context.Context, log *api.StepLog) error {
	input, err := encodeValue(log.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(log.Output)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weft_step_logs (id, execution_id, node_id, node_name, status, input, output, error, duration_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID,
		log.ExecutionID,
		log.NodeID,
		log.NodeName,
		string(log.Status),
		input,
		output,
		log.Error,
		log.Duration.Nanoseconds(),
		log.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListStepLogs(ctx context.Context, executionID string) ([]*api.StepLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, node_id, node_name, status, input, output, error, duration_ns, created_at
		FROM weft_step_logs WHERE execution_id = $1 ORDER BY created_at, id`, executionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*api.StepLog
	for rows.Next() {
		var (
			log           api.StepLog
			status        string
			input, output []byte
			durationNs    int64
		)
		if err := rows.Scan(&log.ID, &log.ExecutionID, &log.NodeID, &log.NodeName,
			&status, &input, &output, &log.Error, &durationNs, &log.CreatedAt); err != nil {
			return nil, err
		}
		log.Status = api.StepStatus(status)
		log.Duration = time.Duration(durationNs)
		if log.Input, err = decodeValue(input); err != nil {
			return nil, err
		}
		if log.Output, err = decodeValue(output); err != nil {
			return nil, err
		}
		result = append(result, &log)
	}
	return result, rows.Err()
}

func scanPgExecution(scan func(dest ...any) error) (*api.Execution, error) {
	var (
		exec          api.Execution
		status        string
		finishedAt    sql.NullTime
		input, output []byte
	)
	if err := scan(&exec.ID, &exec.WorkflowID, &status, &exec.StartedAt,
		&finishedAt, &input, &output, &exec.Error); err != nil {
		return nil, err
	}
	exec.Status = api.Status(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		exec.FinishedAt = &t
	}
	var err error
	if exec.Input, err = decodeValue(input); err != nil {
		return nil, err
	}
	if exec.Output, err = decodeValue(output); err != nil {
		return nil, err
	}
	return &exec, nil
}
