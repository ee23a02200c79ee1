// Package engine provides an observable database engine handle and the
// span-producing tracer that attaches to it.
//
// An Engine wraps a database/sql driver so that every statement execution
// fires before/after/error lifecycle events. A Tracer subscribes to those
// events and opens one OpenTelemetry client span per execution, closing it
// exactly once on either the success or the error path. Nothing else in
// the application's control flow changes: driver errors propagate to the
// caller byte-for-byte, and statement text is only rewritten when the
// commenter is explicitly enabled.
//
// # Quick Start
//
//	e, err := engine.Open("postgres", dsn,
//	    engine.WithDBSystem("postgresql"),
//	    engine.WithDBName("myapp"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	tracer, err := engine.NewTracer(nil, e, false, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Detach()
//
//	// e.DB() is a standard *sql.DB; every statement produces a span.
//	rows, err := e.DB().QueryContext(ctx, "SELECT * FROM users")
//
// Most applications do not construct tracers directly: the instrument
// package wraps engine factories so that engines created after
// instrumentation is installed are traced automatically.
//
// # SQL Commenter
//
// With the commenter enabled, outgoing statement text gains a trailing
// structured comment carrying the driver name, the access library
// name+version, and W3C trace context:
//
//	SELECT 1 /*db_driver='pq',db_framework='sqlx%3A1.4.0',traceparent='00-..-..-01'*/;
//
// Individual tags can be switched off through the commenter options
// (db_driver, db_framework, opentelemetry_values); unknown option keys are
// rejected at construction time. Bound parameters are never touched, and
// with the commenter disabled the statement text reaches the driver
// unmodified.
//
// # Observability
//
// Spans carry db.system, db.name, db.statement (sanitizer-aware, can be
// disabled) and db.operation attributes. Tracers also record a
// db.client.operation.duration histogram; RecordPoolMetrics adds
// connection pool gauges collected from sql.DB.Stats().
package engine
