package engine

import (
	"context"
	"database/sql/driver"
)

// Compile-time interface checks.
var (
	_ driver.Stmt             = (*hookStmt)(nil)
	_ driver.StmtExecContext  = (*hookStmt)(nil)
	_ driver.StmtQueryContext = (*hookStmt)(nil)
)

// hookStmt wraps a prepared statement and fires execution events with the
// query it was prepared from. The statement text was sent to the driver at
// prepare time, so before-execute rewrites do not reach the wire here.
type hookStmt struct {
	stmt   driver.Stmt
	events *Events
	query  string
}

func newHookStmt(stmt driver.Stmt, events *Events, query string) *hookStmt {
	return &hookStmt{stmt: stmt, events: events, query: query}
}

// Close implements driver.Stmt.
func (s *hookStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt.
func (s *hookStmt) NumInput() int {
	return s.stmt.NumInput()
}

// Exec implements driver.Stmt.
// Deprecated: kept for driver.Stmt interface compatibility; use ExecContext.
func (s *hookStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.stmt.Exec(args) //nolint:staticcheck // Required for driver.Stmt interface
}

// Query implements driver.Stmt.
// Deprecated: kept for driver.Stmt interface compatibility; use QueryContext.
func (s *hookStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.stmt.Query(args) //nolint:staticcheck // Required for driver.Stmt interface
}

// ExecContext implements driver.StmtExecContext.
func (s *hookStmt) ExecContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Result, error) {
	ec := s.events.beginExecution(s.query)
	ctx = s.events.fireBeforeExecute(ctx, ec)

	var result driver.Result
	var err error

	if execer, ok := s.stmt.(driver.StmtExecContext); ok {
		result, err = execer.ExecContext(ctx, args)
	} else {
		result, err = s.stmt.Exec(namedValueToValue(args)) //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		s.events.fireExecuteError(ctx, ec, err)
		return nil, err
	}

	s.events.fireAfterExecute(ctx, ec)
	return result, nil
}

// QueryContext implements driver.StmtQueryContext.
func (s *hookStmt) QueryContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Rows, error) {
	ec := s.events.beginExecution(s.query)
	ctx = s.events.fireBeforeExecute(ctx, ec)

	var rows driver.Rows
	var err error

	if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryer.QueryContext(ctx, args)
	} else {
		rows, err = s.stmt.Query(namedValueToValue(args)) //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		s.events.fireExecuteError(ctx, ec, err)
		return nil, err
	}

	s.events.fireAfterExecute(ctx, ec)
	return rows, nil
}

// namedValueToValue converts NamedValue slice to Value slice.
func namedValueToValue(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}
