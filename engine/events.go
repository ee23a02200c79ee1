package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext carries the state of a single in-flight statement
// execution. A fresh instance is created for every execution, so hooks
// observing concurrent statements never share mutable state. The ID is
// the correlation key that pairs a before-execute notification with its
// matching after-execute or error notification.
type ExecutionContext struct {
	// ID uniquely identifies this execution.
	ID uuid.UUID

	// Statement is the SQL text that will be sent to the driver.
	// Before-execute hooks may rewrite it; for prepared statements the
	// text was already sent at prepare time and rewrites have no effect
	// on the wire.
	Statement string

	// Operation is the SQL verb of the statement ("SELECT", "COMMIT", ...)
	// or a synthetic operation name such as "connect".
	Operation string

	// StartedAt is when the execution began.
	StartedAt time.Time
}

// Hook signatures for the engine execution lifecycle.
//
// A BeforeHook may return a derived context; the engine passes it to the
// driver call so that values attached by the hook (an open span, for
// instance) propagate to the matching after/error hook.
type (
	BeforeHook func(ctx context.Context, ec *ExecutionContext) context.Context
	AfterHook  func(ctx context.Context, ec *ExecutionContext)
	ErrorHook  func(ctx context.Context, ec *ExecutionContext, err error)
)

// Subscription is a handle to a registered hook. Remove deterministically
// un-registers it; removing twice is a no-op.
type Subscription struct {
	remove func()
}

// Remove un-registers the hook.
func (s Subscription) Remove() {
	if s.remove != nil {
		s.remove()
	}
}

// hookEntry pairs a hook with the id used for removal.
type hookEntry[T any] struct {
	id uint64
	fn T
}

type hookList[T any] struct {
	entries []hookEntry[T]
}

func (l *hookList[T]) add(id uint64, fn T) {
	l.entries = append(l.entries, hookEntry[T]{id: id, fn: fn})
}

func (l *hookList[T]) drop(id uint64) {
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the hooks in registration order. Hooks are invoked
// outside the events lock so they may themselves subscribe or remove.
func (l *hookList[T]) snapshot() []T {
	out := make([]T, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}

// Events is the execution lifecycle bus of an Engine. Statement executions
// fire the execute hooks; connection acquisition fires the connect hooks.
// Multiple subscribers are permitted and are invoked in registration order;
// there is no de-duplication.
type Events struct {
	mu     sync.RWMutex
	nextID uint64

	beforeExecute hookList[BeforeHook]
	afterExecute  hookList[AfterHook]
	executeError  hookList[ErrorHook]

	beforeConnect hookList[BeforeHook]
	afterConnect  hookList[AfterHook]
	connectError  hookList[ErrorHook]
}

func newEvents() *Events {
	return &Events{}
}

// OnBeforeExecute registers a hook invoked before every statement execution.
func (e *Events) OnBeforeExecute(fn BeforeHook) Subscription {
	return subscribe(e, &e.beforeExecute, fn)
}

// OnAfterExecute registers a hook invoked after every successful execution.
func (e *Events) OnAfterExecute(fn AfterHook) Subscription {
	return subscribe(e, &e.afterExecute, fn)
}

// OnExecuteError registers a hook invoked when an execution fails. The
// original driver error is always re-raised to the caller unchanged.
func (e *Events) OnExecuteError(fn ErrorHook) Subscription {
	return subscribe(e, &e.executeError, fn)
}

// OnBeforeConnect registers a hook invoked before a connection is acquired
// through Engine.Connect.
func (e *Events) OnBeforeConnect(fn BeforeHook) Subscription {
	return subscribe(e, &e.beforeConnect, fn)
}

// OnAfterConnect registers a hook invoked after a connection is acquired.
func (e *Events) OnAfterConnect(fn AfterHook) Subscription {
	return subscribe(e, &e.afterConnect, fn)
}

// OnConnectError registers a hook invoked when connection acquisition fails.
func (e *Events) OnConnectError(fn ErrorHook) Subscription {
	return subscribe(e, &e.connectError, fn)
}

func subscribe[T any](e *Events, l *hookList[T], fn T) Subscription {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	l.add(id, fn)
	e.mu.Unlock()

	return Subscription{remove: func() {
		e.mu.Lock()
		l.drop(id)
		e.mu.Unlock()
	}}
}

// beginExecution creates the per-execution context for a statement.
func (e *Events) beginExecution(query string) *ExecutionContext {
	return &ExecutionContext{
		ID:        uuid.New(),
		Statement: query,
		Operation: extractOperation(query),
		StartedAt: time.Now(),
	}
}

// beginOperation creates the per-execution context for a lifecycle action
// that has no statement text, such as BEGIN, COMMIT or connect.
func (e *Events) beginOperation(op string) *ExecutionContext {
	return &ExecutionContext{
		ID:        uuid.New(),
		Operation: op,
		StartedAt: time.Now(),
	}
}

func (e *Events) fireBeforeExecute(ctx context.Context, ec *ExecutionContext) context.Context {
	e.mu.RLock()
	hooks := e.beforeExecute.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		if next := fn(ctx, ec); next != nil {
			ctx = next
		}
	}
	return ctx
}

func (e *Events) fireAfterExecute(ctx context.Context, ec *ExecutionContext) {
	e.mu.RLock()
	hooks := e.afterExecute.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, ec)
	}
}

func (e *Events) fireExecuteError(ctx context.Context, ec *ExecutionContext, err error) {
	e.mu.RLock()
	hooks := e.executeError.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, ec, err)
	}
}

func (e *Events) fireBeforeConnect(ctx context.Context, ec *ExecutionContext) context.Context {
	e.mu.RLock()
	hooks := e.beforeConnect.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		if next := fn(ctx, ec); next != nil {
			ctx = next
		}
	}
	return ctx
}

func (e *Events) fireAfterConnect(ctx context.Context, ec *ExecutionContext) {
	e.mu.RLock()
	hooks := e.afterConnect.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, ec)
	}
}

func (e *Events) fireConnectError(ctx context.Context, ec *ExecutionContext, err error) {
	e.mu.RLock()
	hooks := e.connectError.snapshot()
	e.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, ec, err)
	}
}
