package nodes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Drivers for the two database engines workflows can query.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/weftlabs/weft/pkg/api"
)

// DatabaseQueryHandler runs the database-query node against SQLite
// ("sqlite") or Postgres ("pgx"). SELECT-shaped statements return rows as
// maps; everything else returns the affected row count.
type DatabaseQueryHandler struct {
	// OpenFunc is swappable for tests; nil means sql.Open.
	OpenFunc func(driver, dsn string) (*sql.DB, error)
}

func (h *DatabaseQueryHandler) Type() api.NodeType { return api.NodeDatabaseQuery }

func (h *DatabaseQueryHandler) Required() []string { return []string{"driver", "dsn", "query"} }

func (h *DatabaseQueryHandler) Execute(ctx context.Context, req Request) (any, error) {
	driver := stringField(req.Data, "driver")
	switch driver {
	case "sqlite", "pgx":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	open := h.OpenFunc
	if open == nil {
		open = sql.Open
	}
	db, err := open(driver, stringField(req.Data, "dsn"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	timeout := time.Duration(intField(req.Data, "timeoutMs", 30000)) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := stringField(req.Data, "query")
	params := queryParams(req.Data["params"])

	if isRowQuery(query) {
		rows, err := db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		return scanRows(rows)
	}

	res, err := db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	affected, _ := res.RowsAffected()
	return map[string]any{"rowsAffected": affected}, nil
}

func isRowQuery(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH") ||
		strings.Contains(head, "RETURNING")
}

func queryParams(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return nil
}

func scanRows(rows *sql.Rows) (any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"rows":  out,
		"count": len(out),
	}, nil
}
