// Package sqldb executes authorized statements against any database/sql
// driver the service links in.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/examlens/examlens/internal/query"
)

type Engine struct {
	db      *sql.DB
	timeout time.Duration
}

var _ query.Engine = (*Engine)(nil)

// NewEngine wraps db. A positive timeout bounds each statement.
func NewEngine(db *sql.DB, timeout time.Duration) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &Engine{db: db, timeout: timeout}, nil
}

// Execute runs the statement once on a dedicated connection and reads every
// row before returning. The connection goes back to the pool on all paths.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.ResultSet, error) {
	sqlText := strings.TrimSpace(request.SQL)
	if sqlText == "" {
		return query.ResultSet{}, fmt.Errorf("sql is required")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return query.ResultSet{}, &query.ExecutionError{Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.ResultSet{}, &query.ExecutionError{Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.ResultSet{}, &query.ExecutionError{Err: err}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.ResultSet{}, &query.ExecutionError{Err: err}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.ResultSet{}, &query.ExecutionError{Err: err}
	}

	return query.ResultSet{
		Columns:  query.UniqueColumns(columns),
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case time.Time:
			normalized[i] = typed.UTC()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
