package instrument

import (
	"context"
	"runtime"
	"strings"

	"github.com/trellis-labs/dbtap-go/engine"
)

// Compile-time interface check.
var _ AsyncFactory = (*SQLFactory)(nil)

// SQLFactory creates engines directly over database/sql registered
// drivers. It is the default host library adapter; the sqlx package
// provides another.
type SQLFactory struct {
	opts []engine.Option
}

// NewSQLFactory creates a factory applying the given engine options to
// every engine it creates.
func NewSQLFactory(opts ...engine.Option) *SQLFactory {
	return &SQLFactory{opts: opts}
}

// CreateEngine implements Factory.
func (f *SQLFactory) CreateEngine(driverName, dsn string) (*engine.Engine, error) {
	return engine.Open(driverName, dsn, f.engineOptions()...)
}

// CreateEngineContext implements AsyncFactory: the engine is created and
// connectivity verified under ctx.
func (f *SQLFactory) CreateEngineContext(ctx context.Context, driverName, dsn string) (*engine.Engine, error) {
	return engine.ConnectContext(ctx, driverName, dsn, f.engineOptions()...)
}

// Library implements Factory. database/sql is versioned with the Go
// release it ships in.
func (f *SQLFactory) Library() (name, version string) {
	return "database/sql", strings.TrimPrefix(runtime.Version(), "go")
}

func (f *SQLFactory) engineOptions() []engine.Option {
	name, version := f.Library()
	opts := make([]engine.Option, 0, len(f.opts)+1)
	opts = append(opts, engine.WithLibrary(name, version))
	return append(opts, f.opts...)
}
