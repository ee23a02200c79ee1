// Package sqlx adapts jmoiron/sqlx as a host library for the interception
// layer and exposes an instrumented sqlx view over engines.
//
//	reg := instrument.Default()
//	_ = reg.RegisterFactory("sqlx", sqlx.NewFactory(
//	    engine.WithDBSystem("postgresql"),
//	))
//	_, _ = reg.Instrument(instrument.WithEnableCommenter())
//
//	e, db, err := sqlx.Connect(ctx, "postgres", dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	var users []User
//	err = db.SelectContext(ctx, &users, "SELECT * FROM users WHERE active = true")
//
// The sqlx adapter reports library version 1.4.0, so the interception
// layer wraps its context-aware creation entry point as well.
package sqlx
