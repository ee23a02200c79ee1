package engine

import (
	"context"
	"database/sql/driver"
)

// Compile-time interface check.
var _ driver.Tx = (*hookTx)(nil)

// hookTx wraps a driver.Tx and fires execution events for COMMIT and
// ROLLBACK. The driver.Tx interface carries no context, so the hooks run
// with a background context.
type hookTx struct {
	tx     driver.Tx
	events *Events
}

func newHookTx(tx driver.Tx, events *Events) *hookTx {
	return &hookTx{tx: tx, events: events}
}

// Commit implements driver.Tx.
func (t *hookTx) Commit() error {
	return t.finish("COMMIT", t.tx.Commit)
}

// Rollback implements driver.Tx.
func (t *hookTx) Rollback() error {
	return t.finish("ROLLBACK", t.tx.Rollback)
}

func (t *hookTx) finish(op string, fn func() error) error {
	ec := t.events.beginOperation(op)
	ctx := t.events.fireBeforeExecute(context.Background(), ec)

	if err := fn(); err != nil {
		t.events.fireExecuteError(ctx, ec, err)
		return err
	}

	t.events.fireAfterExecute(ctx, ec)
	return nil
}
