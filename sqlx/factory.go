package sqlx

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trellis-labs/dbtap-go/engine"
	"github.com/trellis-labs/dbtap-go/instrument"
)

const (
	libraryName = "sqlx"

	// libraryVersion pins the jmoiron/sqlx release this adapter is built
	// against. It feeds both the commenter's db_framework tag and the
	// interception layer's feature detection.
	libraryVersion = "1.4.0"
)

// Compile-time interface check.
var _ instrument.AsyncFactory = (*Factory)(nil)

// Factory creates engines identified as sqlx-backed. Register it with an
// instrument.Registry to have sqlx engines traced automatically.
type Factory struct {
	opts []engine.Option
}

// NewFactory creates a factory applying the given engine options to every
// engine it creates.
func NewFactory(opts ...engine.Option) *Factory {
	return &Factory{opts: opts}
}

// CreateEngine implements instrument.Factory.
func (f *Factory) CreateEngine(driverName, dsn string) (*engine.Engine, error) {
	return engine.Open(driverName, dsn, f.engineOptions()...)
}

// CreateEngineContext implements instrument.AsyncFactory: the engine is
// created and connectivity verified under ctx, mirroring sqlx.ConnectContext.
func (f *Factory) CreateEngineContext(ctx context.Context, driverName, dsn string) (*engine.Engine, error) {
	return engine.ConnectContext(ctx, driverName, dsn, f.engineOptions()...)
}

// Library implements instrument.Factory.
func (f *Factory) Library() (name, version string) {
	return libraryName, libraryVersion
}

func (f *Factory) engineOptions() []engine.Option {
	opts := make([]engine.Option, 0, len(f.opts)+1)
	opts = append(opts, engine.WithLibrary(libraryName, libraryVersion))
	return append(opts, f.opts...)
}

// NewDB returns a sqlx view over the engine's instrumented pool. Every
// statement sqlx sends, including Get, Select and named queries, flows
// through the engine's hook-firing driver, so no per-method wrapping is
// needed.
func NewDB(e *engine.Engine) *sqlx.DB {
	return sqlx.NewDb(e.DB(), e.DriverName())
}

// Open creates a sqlx-backed engine and returns it together with its sqlx
// view. When the default registry is instrumented, the engine is observed
// just as if it had been created through a registered factory. Users of a
// custom instrument.Registry should register a Factory with it and create
// engines through Factory.CreateEngine instead, or pass the engine to their
// registry's ObserveEngine.
func Open(driverName, dsn string, opts ...engine.Option) (*engine.Engine, *sqlx.DB, error) {
	e, err := NewFactory(opts...).CreateEngine(driverName, dsn)
	if err != nil {
		return nil, nil, err
	}
	instrument.Default().ObserveEngine(e)
	return e, NewDB(e), nil
}

// Connect is Open followed by a connectivity check under ctx. Like Open, it
// reports the engine to the default registry only.
func Connect(ctx context.Context, driverName, dsn string, opts ...engine.Option) (*engine.Engine, *sqlx.DB, error) {
	e, err := NewFactory(opts...).CreateEngineContext(ctx, driverName, dsn)
	if err != nil {
		return nil, nil, err
	}
	instrument.Default().ObserveEngine(e)
	return e, NewDB(e), nil
}
