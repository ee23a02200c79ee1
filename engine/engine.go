package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// Engine is a reusable handle over a pooled database connection whose
// statement executions are observable through an event bus. The engine
// does not open spans itself; a Tracer subscribes to Events and does the
// span bookkeeping, so instrumentation can be attached and detached
// without touching the engine.
type Engine struct {
	db         *sql.DB
	events     *Events
	cfg        *config
	driverName string
	dsn        string
}

// Open creates an Engine for the given registered driver name and DSN.
// The underlying driver is wrapped so every connection reports executions
// to the engine's event bus. No connection is established until first use.
func Open(driverName, dsn string, opts ...Option) (*Engine, error) {
	// Probe for the registered driver. sql.Open is lazy, so this never
	// dials the database.
	probe, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open driver %q: %w", driverName, err)
	}
	d := probe.Driver()
	_ = probe.Close()

	e := newEngine(d, driverName, dsn, opts...)
	return e, nil
}

// ConnectContext creates an Engine and verifies connectivity under the
// given context. It is Open followed by PingContext; the engine is closed
// and an error returned if the ping fails.
func ConnectContext(ctx context.Context, driverName, dsn string, opts ...Option) (*Engine, error) {
	e, err := Open(driverName, dsn, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.db.PingContext(ctx); err != nil {
		_ = e.db.Close()
		return nil, fmt.Errorf("ping %q: %w", driverName, err)
	}
	return e, nil
}

// OpenDB creates an Engine over an existing driver.Driver. Use this when
// the driver is not registered with database/sql under a name, or to wrap
// a driver obtained from another library.
func OpenDB(d driver.Driver, driverName, dsn string, opts ...Option) *Engine {
	return newEngine(d, driverName, dsn, opts...)
}

func newEngine(d driver.Driver, driverName, dsn string, opts ...Option) *Engine {
	cfg := newConfig(opts...)
	events := newEvents()

	hd := &hookDriver{driver: d, events: events}
	connector, err := hd.OpenConnector(dsn)
	if err != nil {
		// OpenConnector on the wrapper cannot fail: it either delegates
		// successfully or falls back to DSN-based opens. Keep the DSN
		// fallback regardless.
		connector = &dsnConnector{dsn: dsn, driver: hd}
	}

	return &Engine{
		db:         sql.OpenDB(connector),
		events:     events,
		cfg:        cfg,
		driverName: driverName,
		dsn:        dsn,
	}
}

// DB returns the *sql.DB backed by the hook-firing driver. It is fully
// compatible with database/sql; every statement sent through it is
// observed by the engine's event subscribers.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Events returns the engine's execution lifecycle bus.
func (e *Engine) Events() *Events {
	return e.events
}

// DriverName returns the name of the underlying driver.
func (e *Engine) DriverName() string {
	return e.driverName
}

// Library returns the name and version of the database access library the
// engine was created through.
func (e *Engine) Library() (name, version string) {
	return e.cfg.LibraryName, e.cfg.LibraryVersion
}

// Connect acquires a single connection from the pool, firing the connect
// lifecycle events around the acquisition. The caller must return the
// connection to the pool with Conn.Close.
func (e *Engine) Connect(ctx context.Context) (*sql.Conn, error) {
	ec := e.events.beginOperation("connect")
	ctx = e.events.fireBeforeConnect(ctx, ec)

	conn, err := e.db.Conn(ctx)
	if err != nil {
		e.events.fireConnectError(ctx, ec, err)
		return nil, err
	}

	e.events.fireAfterConnect(ctx, ec)
	return conn, nil
}

// Close closes the underlying pool.
func (e *Engine) Close() error {
	return e.db.Close()
}
