package engine

import (
	"context"
	"database/sql/driver"
	"io"
	"sync"
)

// fakeDriver is an in-memory driver recording every statement text it
// receives on the wire, with injectable failures per call site.
type fakeDriver struct {
	mu      sync.Mutex
	queries []string

	execErr  error
	queryErr error
	pingErr  error
	openErr  error
}

var _ driver.Driver = (*fakeDriver)(nil)

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeConn{driver: d}, nil
}

func (d *fakeDriver) record(query string) {
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()
}

// Queries returns a copy of every statement received so far.
func (d *fakeDriver) Queries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

type fakeConn struct {
	driver *fakeDriver
}

var (
	_ driver.Conn               = (*fakeConn)(nil)
	_ driver.ConnPrepareContext = (*fakeConn)(nil)
	_ driver.ConnBeginTx        = (*fakeConn)(nil)
	_ driver.ExecerContext      = (*fakeConn)(nil)
	_ driver.QueryerContext     = (*fakeConn)(nil)
	_ driver.Pinger             = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{driver: c.driver, query: query}, nil
}

func (c *fakeConn) PrepareContext(_ context.Context, query string) (driver.Stmt, error) {
	return c.Prepare(query)
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return &fakeTx{}, nil
}

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &fakeTx{}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if c.driver.execErr != nil {
		return nil, c.driver.execErr
	}
	c.driver.record(query)
	return driver.ResultNoRows, nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.driver.queryErr != nil {
		return nil, c.driver.queryErr
	}
	c.driver.record(query)
	return &fakeRows{}, nil
}

func (c *fakeConn) Ping(context.Context) error {
	return c.driver.pingErr
}

type fakeStmt struct {
	driver *fakeDriver
	query  string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec([]driver.Value) (driver.Result, error) {
	if s.driver.execErr != nil {
		return nil, s.driver.execErr
	}
	s.driver.record(s.query)
	return driver.ResultNoRows, nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	if s.driver.queryErr != nil {
		return nil, s.driver.queryErr
	}
	s.driver.record(s.query)
	return &fakeRows{}, nil
}

type fakeTx struct{}

func (*fakeTx) Commit() error   { return nil }
func (*fakeTx) Rollback() error { return nil }

type fakeRows struct{}

func (*fakeRows) Columns() []string         { return nil }
func (*fakeRows) Close() error              { return nil }
func (*fakeRows) Next([]driver.Value) error { return io.EOF }
