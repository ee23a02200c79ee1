package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNilEngine is returned by NewTracer when no engine is supplied.
var ErrNilEngine = errors.New("engine: nil engine")

// Tracer binds one OpenTelemetry tracer to one Engine. It subscribes to
// the engine's execution lifecycle: before-execute opens a client span
// (and, when the commenter is enabled, appends the structured comment to
// the outgoing statement), after-execute closes the span with success,
// and the error path closes it with error status while the original error
// propagates to the caller untouched.
//
// Multiple Tracers may be attached to the same engine; each holds an
// independent subscription and produces its own spans.
type Tracer struct {
	engine    *Engine
	tracer    trace.Tracer
	metrics   *metrics
	commenter *commenter

	// active pairs an in-flight execution with its open span. Entries are
	// removed when the span is closed, on exactly one of the success or
	// error paths.
	mu     sync.Mutex
	active map[uuid.UUID]trace.Span

	subs []Subscription
}

// NewTracer attaches a Tracer to an engine. A nil provider falls back to
// the engine's configured provider (the global one unless overridden).
// Unrecognized commenter option keys are a construction error regardless
// of whether the commenter is enabled.
func NewTracer(
	tp trace.TracerProvider,
	e *Engine,
	enableCommenter bool,
	commenterOptions map[string]bool,
) (*Tracer, error) {
	if e == nil {
		return nil, ErrNilEngine
	}
	if err := ValidateCommenterOptions(commenterOptions); err != nil {
		return nil, err
	}
	if tp == nil {
		tp = e.cfg.TracerProvider
	}

	t := &Tracer{
		engine: e,
		tracer: tp.Tracer(scope),
		active: make(map[uuid.UUID]trace.Span),
	}

	if enableCommenter {
		cm, err := newCommenter(e, commenterOptions)
		if err != nil {
			return nil, err
		}
		t.commenter = cm
	}

	// Metric instrument creation failures leave metrics nil, which
	// disables recording without affecting tracing.
	t.metrics, _ = newMetrics(e.cfg.Meter)

	t.subs = []Subscription{
		e.events.OnBeforeExecute(t.beforeExecute),
		e.events.OnAfterExecute(t.afterExecute),
		e.events.OnExecuteError(t.executeError),
		e.events.OnBeforeConnect(t.beforeExecute),
		e.events.OnAfterConnect(t.afterExecute),
		e.events.OnConnectError(t.executeError),
	}
	return t, nil
}

// Engine returns the engine this tracer is attached to.
func (t *Tracer) Engine() *Engine {
	return t.engine
}

// Detach removes the tracer's subscriptions from the engine and ends any
// span still open for an in-flight execution, so detaching never leaks a
// started span. The in-flight executions themselves finish unobserved. New
// executions are no longer seen. Detach is idempotent.
func (t *Tracer) Detach() {
	for _, sub := range t.subs {
		sub.Remove()
	}
	t.subs = nil

	t.mu.Lock()
	active := t.active
	t.active = make(map[uuid.UUID]trace.Span)
	t.mu.Unlock()

	for _, span := range active {
		span.End()
	}
}

func (t *Tracer) beforeExecute(ctx context.Context, ec *ExecutionContext) context.Context {
	ctx, span := t.tracer.Start(ctx, spanName(ec),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.engine.cfg.statementAttributes(ec)...),
	)

	t.mu.Lock()
	t.active[ec.ID] = span
	t.mu.Unlock()

	if t.commenter != nil && ec.Statement != "" {
		ec.Statement = t.commenter.annotate(ctx, ec.Statement)
	}
	return ctx
}

func (t *Tracer) afterExecute(ctx context.Context, ec *ExecutionContext) {
	span, ok := t.take(ec.ID)
	if !ok {
		return
	}
	t.metrics.recordDuration(ctx, time.Since(ec.StartedAt), ec.Operation,
		t.engine.cfg.baseAttributes(), nil)
	span.End()
}

func (t *Tracer) executeError(ctx context.Context, ec *ExecutionContext, err error) {
	span, ok := t.take(ec.ID)
	if !ok {
		return
	}
	t.metrics.recordDuration(ctx, time.Since(ec.StartedAt), ec.Operation,
		t.engine.cfg.baseAttributes(), err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// take removes and returns the span for an execution, guaranteeing each
// span is closed exactly once even if a hook fires twice.
func (t *Tracer) take(id uuid.UUID) (trace.Span, bool) {
	t.mu.Lock()
	span, ok := t.active[id]
	if ok {
		delete(t.active, id)
	}
	t.mu.Unlock()
	return span, ok
}
