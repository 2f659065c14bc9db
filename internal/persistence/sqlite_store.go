package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/weftlabs/weft/pkg/api"
)

// SQLiteStore is a WorkflowStore and ExecutionStore backed by SQLite.
//
// It expects an *sql.DB using a SQLite driver; the caller imports it, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ api.WorkflowStore  = (*SQLiteStore)(nil)
	_ api.ExecutionStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the schema in db and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			definition BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			input BLOB,
			output BLOB,
			error TEXT
		);
		CREATE TABLE IF NOT EXISTS step_logs (
			id TEXT PRIMARY KEY,
			execution_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			status TEXT NOT NULL,
			input BLOB,
			output BLOB,
			error TEXT,
			duration_ns INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_workflow ON executions(workflow_id);
		CREATE INDEX IF NOT EXISTS idx_step_logs_execution ON step_logs(execution_id);`,
	)
	return err
}

// PutWorkflow stores a workflow definition under its ID.
func (s *SQLiteStore) PutWorkflow(ctx context.Context, def api.WorkflowDefinition) error {
	blob, err := encodeValue(def)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, definition) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET definition = excluded.definition`,
		def.ID, blob,
	)
	return err
}

func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (api.WorkflowDefinition, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM workflows WHERE id = ?`, id,
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

func (s *SQLiteStore) SaveExecution(ctx context.Context, exec *api.Execution) error {
	input, err := encodeValue(exec.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(exec.Output)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, started_at, finished_at, input, output, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.WorkflowID,
		string(exec.Status),
		exec.StartedAt.UnixNano(),
		nanosOrNil(exec.FinishedAt),
		input,
		output,
		exec.Error,
	)
	return err
}

func (s *SQLiteStore) UpdateExecution(ctx context.Context, exec *api.Execution) error {
	input, err := encodeValue(exec.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(exec.Output)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET workflow_id = ?, status = ?, started_at = ?, finished_at = ?, input = ?, output = ?, error = ?
		WHERE id = ?`,
		exec.WorkflowID,
		string(exec.Status),
		exec.StartedAt.UnixNano(),
		nanosOrNil(exec.FinishedAt),
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

func (s *SQLiteStore) GetExecution(ctx context.Context, id string) (*api.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, started_at, finished_at, input, output, error
		FROM executions WHERE id = ?`, id,
	)
	exec, err := scanExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrExecutionNotFound
	}
	return exec, err
}

func (s *SQLiteStore) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.Execution, error) {
	query := `
		SELECT id, workflow_id, status, started_at, finished_at, input, output, error
		FROM executions WHERE 1=1`
	var args []any
	if filter.WorkflowID != "" {
		query += " AND workflow_id = ?"
		args = append(args, filter.WorkflowID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY started_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*api.Execution
	for rows.Next() {
		exec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, exec)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) AppendStepLog(ctx context.Context, log *api.StepLog) error {
	input, err := encodeValue(log.Input)
	if err != nil {
		return err
	}
	output, err := encodeValue(log.Output)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_logs (id, execution_id, node_id, node_name, status, input, output, error, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.ExecutionID,
		log.NodeID,
		log.NodeName,
		string(log.Status),
		input,
		output,
		log.Error,
		log.Duration.Nanoseconds(),
		log.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) ListStepLogs(ctx context.Context, executionID string) ([]*api.StepLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, node_id, node_name, status, input, output, error, duration_ns, created_at
		FROM step_logs WHERE execution_id = ? ORDER BY created_at, id`, executionID,
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
			createdAtNs   int64
		)
		if err := rows.Scan(&log.ID, &log.ExecutionID, &log.NodeID, &log.NodeName,
			&status, &input, &output, &log.Error, &durationNs, &createdAtNs); err != nil {
			return nil, err
		}
		log.Status = api.StepStatus(status)
		log.Duration = time.Duration(durationNs)
		log.CreatedAt = time.Unix(0, createdAtNs).UTC()
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

func scanExecution(scan func(dest ...any) error) (*api.Execution, error) {
	var (
		exec          api.Execution
		status        string
		startedAtNs   int64
		finishedAtNs  sql.NullInt64
		input, output []byte
	)
	if err := scan(&exec.ID, &exec.WorkflowID, &status, &startedAtNs,
		&finishedAtNs, &input, &output, &exec.Error); err != nil {
		return nil, err
	}
	exec.Status = api.Status(status)
	exec.StartedAt = time.Unix(0, startedAtNs).UTC()
	if finishedAtNs.Valid {
		t := time.Unix(0, finishedAtNs.Int64).UTC()
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

func nanosOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
