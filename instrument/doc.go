// Package instrument is the interception layer: it wraps engine-creation
// entry points so that engines created by application code are traced
// automatically, and restores them on demand.
//
// Host database libraries are represented by the Factory interface (plus
// the optional AsyncFactory extension for libraries that can create
// engines under a context, available from library version 1.4). Factories
// live in an explicit Registry; Instrument swaps each registered factory
// for a tracing wrapper and Uninstrument swaps the originals back. The
// wrapper always runs the original creation call first and attaches a
// tracer only on success, so creation errors reach the caller untouched.
//
//	reg := instrument.Default()
//	_ = reg.RegisterFactory("sql", instrument.NewSQLFactory(
//	    engine.WithDBSystem("postgresql"),
//	))
//
//	_, err := reg.Instrument(instrument.WithEnableCommenter())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, _ := reg.Factory("sql")
//	e, err := f.CreateEngine("postgres", dsn) // traced from here on
//
// Already-existing engines can be instrumented in the same call:
//
//	tracers, err := reg.Instrument(instrument.WithEngines(e1, e2))
//
// The version gate is resolved once per factory into a Features struct
// consumed by both the install and the restore path; libraries below 1.4
// simply never have their async entry point wrapped, which is a skipped
// feature, not an error.
package instrument
