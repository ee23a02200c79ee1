package engine

import (
	"context"
	"database/sql/driver"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*hookConn)(nil)
	_ driver.ConnPrepareContext = (*hookConn)(nil)
	_ driver.ConnBeginTx        = (*hookConn)(nil)
	_ driver.ExecerContext      = (*hookConn)(nil)
	_ driver.QueryerContext     = (*hookConn)(nil)
	_ driver.Pinger             = (*hookConn)(nil)
	_ driver.SessionResetter    = (*hookConn)(nil)
	_ driver.Validator          = (*hookConn)(nil)
)

// hookConn wraps a driver.Conn and fires the engine's execution lifecycle
// events around every operation. The original call always runs; errors
// propagate to the caller unchanged after the error hooks have observed
// them.
type hookConn struct {
	conn   driver.Conn
	events *Events
}

func newHookConn(conn driver.Conn, events *Events) *hookConn {
	return &hookConn{conn: conn, events: events}
}

// Prepare implements driver.Conn.
func (c *hookConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newHookStmt(stmt, c.events, query), nil
}

// Close implements driver.Conn.
func (c *hookConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: kept for driver.Conn interface compatibility; use BeginTx.
func (c *hookConn) Begin() (driver.Tx, error) {
	tx, err := c.conn.Begin() //nolint:staticcheck // Required for driver.Conn interface
	if err != nil {
		return nil, err
	}
	return newHookTx(tx, c.events), nil
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *hookConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newHookStmt(stmt, c.events, query), nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *hookConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	ec := c.events.beginOperation("BEGIN")
	ctx = c.events.fireBeforeExecute(ctx, ec)

	var tx driver.Tx
	var err error

	if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
		tx, err = beginner.BeginTx(ctx, opts)
	} else {
		tx, err = c.conn.Begin() //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		c.events.fireExecuteError(ctx, ec, err)
		return nil, err
	}

	c.events.fireAfterExecute(ctx, ec)
	return newHookTx(tx, c.events), nil
}

// ExecContext implements driver.ExecerContext.
func (c *hookConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		// database/sql falls back to the prepared-statement path, which
		// fires its own events.
		return nil, driver.ErrSkip
	}

	ec := c.events.beginExecution(query)
	ctx = c.events.fireBeforeExecute(ctx, ec)

	result, err := execer.ExecContext(ctx, ec.Statement, args)
	if err != nil {
		c.events.fireExecuteError(ctx, ec, err)
		return nil, err
	}

	c.events.fireAfterExecute(ctx, ec)
	return result, nil
}

// QueryContext implements driver.QueryerContext.
func (c *hookConn) QueryContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	ec := c.events.beginExecution(query)
	ctx = c.events.fireBeforeExecute(ctx, ec)

	rows, err := queryer.QueryContext(ctx, ec.Statement, args)
	if err != nil {
		c.events.fireExecuteError(ctx, ec, err)
		return nil, err
	}

	c.events.fireAfterExecute(ctx, ec)
	return rows, nil
}

// Ping implements driver.Pinger.
func (c *hookConn) Ping(ctx context.Context) error {
	ec := c.events.beginOperation("PING")
	ctx = c.events.fireBeforeExecute(ctx, ec)

	var err error
	if pinger, ok := c.conn.(driver.Pinger); ok {
		err = pinger.Ping(ctx)
	}

	if err != nil {
		c.events.fireExecuteError(ctx, ec, err)
		return err
	}

	c.events.fireAfterExecute(ctx, ec)
	return nil
}

// ResetSession implements driver.SessionResetter.
func (c *hookConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *hookConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}
