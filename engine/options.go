package engine

import (
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name reported to OpenTelemetry.
const scope = "github.com/trellis-labs/dbtap-go/engine"

// config holds per-engine configuration shared by the engine and any
// tracers attached to it.
type config struct {
	// TracerProvider is used by tracers attached to this engine when the
	// tracer was not given an explicit provider. Defaults to the global
	// provider; with no global SDK installed the no-op tracer is used.
	TracerProvider trace.TracerProvider

	// MeterProvider is the source of the engine meter. Defaults to the
	// global provider.
	MeterProvider metric.MeterProvider

	// Meter is created from MeterProvider once options are applied.
	Meter metric.Meter

	// DBSystem identifies the DBMS product ("postgresql", "mysql", ...).
	// Emitted as the db.system attribute.
	DBSystem string

	// DBName is the database being accessed. Emitted as db.name.
	DBName string

	// LibraryName and LibraryVersion identify the access library this
	// engine was created through. They feed the commenter's db_framework
	// tag. Factories set them; the default is the standard library and
	// the Go release it ships with.
	LibraryName    string
	LibraryVersion string

	// QuerySanitizer rewrites statement text before it is recorded on a
	// span. Nil records the text as-is.
	QuerySanitizer func(query string) string

	// DisableQuery omits db.statement from spans entirely.
	DisableQuery bool
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		LibraryName:    "database/sql",
		LibraryVersion: strings.TrimPrefix(runtime.Version(), "go"),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Meter = cfg.MeterProvider.Meter(scope)
	return cfg
}

// baseAttributes returns the attributes shared by every span and metric
// produced for this engine.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	return attrs
}

// statementAttributes returns the attributes for a statement-execution span.
func (cfg *config) statementAttributes(ec *ExecutionContext) []attribute.KeyValue {
	attrs := cfg.baseAttributes()

	if !cfg.DisableQuery && ec.Statement != "" {
		stmt := ec.Statement
		if cfg.QuerySanitizer != nil {
			stmt = cfg.QuerySanitizer(stmt)
		}
		attrs = append(attrs, attribute.String("db.statement", stmt))
	}

	if ec.Operation != "" {
		attrs = append(attrs, attribute.String("db.operation", ec.Operation))
	}

	return attrs
}

// Option configures an Engine.
type Option func(*config)

// WithTracerProvider sets the tracer provider used by tracers attached to
// the engine. If not called, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider for engine metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithDBSystem sets the DBMS product identifier emitted as db.system.
// Common values: "postgresql", "mysql", "sqlite", "mssql", "oracle".
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name emitted as db.name.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithLibrary records the name and version of the database access library
// the engine was created through. The commenter emits it as
// db_framework='<name>:<version>'. Factories call this; applications
// rarely need to.
func WithLibrary(name, version string) Option {
	return func(cfg *config) {
		cfg.LibraryName = name
		cfg.LibraryVersion = version
	}
}

// WithQuerySanitizer sets the sanitizer applied to statement text before it
// is recorded on spans. Use DefaultQuerySanitizer to mask literal values.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery omits statement text from spans entirely. The
// db.operation attribute is still recorded.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}
