package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestEventsBeforeExecute(t *testing.T) {
	t.Run("given a before hook, then it sees the execution context", func(t *testing.T) {
		ev := newEvents()

		var seen *ExecutionContext
		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			seen = ec
			return ctx
		})

		ec := ev.beginExecution("SELECT 1")
		ev.fireBeforeExecute(context.Background(), ec)

		require.NotNil(t, seen)
		assert.Equal(t, "SELECT 1", seen.Statement)
		assert.Equal(t, "SELECT", seen.Operation)
		assert.NotZero(t, seen.ID)
	})

	t.Run("given a hook that rewrites the statement, then later hooks see the rewrite", func(t *testing.T) {
		ev := newEvents()

		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			ec.Statement += " /*tag*/"
			return ctx
		})

		var second string
		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			second = ec.Statement
			return ctx
		})

		ec := ev.beginExecution("SELECT 1")
		ev.fireBeforeExecute(context.Background(), ec)

		assert.Equal(t, "SELECT 1 /*tag*/", second)
		assert.Equal(t, "SELECT 1 /*tag*/", ec.Statement)
	})

	t.Run("given a hook that derives the context, then later hooks receive it", func(t *testing.T) {
		ev := newEvents()

		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			return context.WithValue(ctx, ctxKey("k"), "v")
		})

		var got any
		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			got = ctx.Value(ctxKey("k"))
			return ctx
		})

		out := ev.fireBeforeExecute(context.Background(), ev.beginExecution("SELECT 1"))

		assert.Equal(t, "v", got)
		assert.Equal(t, "v", out.Value(ctxKey("k")))
	})

	t.Run("given a hook returning nil context, then the previous context is kept", func(t *testing.T) {
		ev := newEvents()

		ev.OnBeforeExecute(func(ctx context.Context, ec *ExecutionContext) context.Context {
			return nil
		})

		out := ev.fireBeforeExecute(context.Background(), ev.beginExecution("SELECT 1"))
		assert.NotNil(t, out)
	})
}

func TestEventsSubscriptionRemove(t *testing.T) {
	t.Run("given a removed subscription, then the hook no longer fires", func(t *testing.T) {
		ev := newEvents()

		calls := 0
		sub := ev.OnAfterExecute(func(ctx context.Context, ec *ExecutionContext) {
			calls++
		})

		ec := ev.beginExecution("SELECT 1")
		ev.fireAfterExecute(context.Background(), ec)
		sub.Remove()
		ev.fireAfterExecute(context.Background(), ec)

		assert.Equal(t, 1, calls)
	})

	t.Run("given a subscription removed twice, then nothing panics", func(t *testing.T) {
		ev := newEvents()
		sub := ev.OnExecuteError(func(ctx context.Context, ec *ExecutionContext, err error) {})

		assert.NotPanics(t, func() {
			sub.Remove()
			sub.Remove()
		})
	})

	t.Run("given two subscribers, then removing one keeps the other", func(t *testing.T) {
		ev := newEvents()

		var first, second int
		sub := ev.OnAfterExecute(func(ctx context.Context, ec *ExecutionContext) { first++ })
		ev.OnAfterExecute(func(ctx context.Context, ec *ExecutionContext) { second++ })

		sub.Remove()
		ev.fireAfterExecute(context.Background(), ev.beginExecution("SELECT 1"))

		assert.Equal(t, 0, first)
		assert.Equal(t, 1, second)
	})
}

func TestEventsErrorHooks(t *testing.T) {
	t.Run("given an execution error, then error hooks see it", func(t *testing.T) {
		ev := newEvents()

		var got error
		ev.OnExecuteError(func(ctx context.Context, ec *ExecutionContext, err error) {
			got = err
		})

		ev.fireExecuteError(context.Background(), ev.beginExecution("SELECT 1"), assert.AnError)
		assert.Equal(t, assert.AnError, got)
	})
}

func TestEventsConnectHooks(t *testing.T) {
	t.Run("given connect hooks, then they fire independently of execute hooks", func(t *testing.T) {
		ev := newEvents()

		var executes, connects int
		ev.OnAfterExecute(func(ctx context.Context, ec *ExecutionContext) { executes++ })
		ev.OnAfterConnect(func(ctx context.Context, ec *ExecutionContext) { connects++ })

		ec := ev.beginOperation("connect")
		ev.fireBeforeConnect(context.Background(), ec)
		ev.fireAfterConnect(context.Background(), ec)

		assert.Equal(t, 0, executes)
		assert.Equal(t, 1, connects)
		assert.Equal(t, "connect", ec.Operation)
		assert.Empty(t, ec.Statement)
	})
}

func TestBeginExecution(t *testing.T) {
	t.Run("given two executions, then their correlation keys differ", func(t *testing.T) {
		ev := newEvents()

		a := ev.beginExecution("SELECT 1")
		b := ev.beginExecution("SELECT 1")

		assert.NotEqual(t, a.ID, b.ID)
		assert.False(t, a.StartedAt.IsZero())
	})
}
