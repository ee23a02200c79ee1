package engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestValidateCommenterOptions(t *testing.T) {
	type args struct {
		opts map[string]bool
	}

	tests := []struct {
		name    string
		args    args
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given nil options, then valid",
			args:    args{opts: nil},
			wantErr: assert.NoError,
		},
		{
			name: "given all known keys, then valid",
			args: args{opts: map[string]bool{
				"db_driver":            false,
				"db_framework":         true,
				"opentelemetry_values": true,
			}},
			wantErr: assert.NoError,
		},
		{
			name:    "given unknown key, then fails fast",
			args:    args{opts: map[string]bool{"db_drivr": true}},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.wantErr(t, ValidateCommenterOptions(tt.args.opts))
		})
	}
}

func TestParseCommenterOptions(t *testing.T) {
	type args struct {
		opts map[string]bool
	}

	tests := []struct {
		name      string
		args      args
		wantFlags commenterFlags
		wantErr   assert.ErrorAssertionFunc
	}{
		{
			name:      "given empty options, then everything defaults to enabled",
			args:      args{opts: nil},
			wantFlags: commenterFlags{dbDriver: true, dbFramework: true, traceValues: true},
			wantErr:   assert.NoError,
		},
		{
			name:      "given db_driver disabled, then only that flag is off",
			args:      args{opts: map[string]bool{"db_driver": false}},
			wantFlags: commenterFlags{dbDriver: false, dbFramework: true, traceValues: true},
			wantErr:   assert.NoError,
		},
		{
			name:      "given all disabled, then all flags off",
			args:      args{opts: map[string]bool{"db_driver": false, "db_framework": false, "opentelemetry_values": false}},
			wantFlags: commenterFlags{},
			wantErr:   assert.NoError,
		},
		{
			name:    "given unknown key, then errors",
			args:    args{opts: map[string]bool{"traceparent": true}},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, err := parseCommenterOptions(tt.args.opts)
			if !tt.wantErr(t, err) || err != nil {
				return
			}
			assert.Equal(t, tt.wantFlags, flags)
		})
	}
}

func TestSerializeTags(t *testing.T) {
	type args struct {
		tags map[string]string
	}

	tests := []struct {
		name        string
		args        args
		wantComment string
	}{
		{
			name:        "given no tags, then empty",
			args:        args{tags: nil},
			wantComment: "",
		},
		{
			name:        "given tags, then keys are sorted",
			args:        args{tags: map[string]string{"b": "2", "a": "1"}},
			wantComment: "/*a='1',b='2'*/",
		},
		{
			name:        "given value with space, then percent-encoded as %20",
			args:        args{tags: map[string]string{"k": "a b"}},
			wantComment: "/*k='a%20b'*/",
		},
		{
			name:        "given value with colon, then percent-encoded",
			args:        args{tags: map[string]string{"db_framework": "sqlx:1.4.0"}},
			wantComment: "/*db_framework='sqlx%3A1.4.0'*/",
		},
		{
			name:        "given value with quote, then it cannot break the quoting",
			args:        args{tags: map[string]string{"k": "it's"}},
			wantComment: "/*k='it%27s'*/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantComment, serializeTags(tt.args.tags))
		})
	}
}

func newTestCommenter(flags commenterFlags) *commenter {
	return &commenter{
		flags:      flags,
		driverName: "pq",
		framework:  "sqlx:1.4.0",
		propagator: propagation.TraceContext{},
	}
}

func TestCommenterAnnotate(t *testing.T) {
	t.Run("given an active span, then all three default tags are appended", func(t *testing.T) {
		c := newTestCommenter(commenterFlags{dbDriver: true, dbFramework: true, traceValues: true})

		tp := sdktrace.NewTracerProvider()
		defer tp.Shutdown(context.Background())
		ctx, span := tp.Tracer("test").Start(context.Background(), "SELECT")
		defer span.End()

		got := c.annotate(ctx, "SELECT 1")

		want := regexp.MustCompile(
			`^SELECT 1 /\*db_driver='pq',db_framework='sqlx%3A1\.4\.0',traceparent='00-[0-9a-f]{32}-[0-9a-f]{16}-0[01]'\*/;$`,
		)
		assert.Regexp(t, want, got)
	})

	t.Run("given db_driver disabled, then that tag is absent and others remain", func(t *testing.T) {
		c := newTestCommenter(commenterFlags{dbDriver: false, dbFramework: true, traceValues: true})

		tp := sdktrace.NewTracerProvider()
		defer tp.Shutdown(context.Background())
		ctx, span := tp.Tracer("test").Start(context.Background(), "SELECT")
		defer span.End()

		got := c.annotate(ctx, "SELECT 1")

		assert.NotContains(t, got, "db_driver=")
		assert.Contains(t, got, "db_framework='sqlx%3A1.4.0'")
		assert.Contains(t, got, "traceparent=")
	})

	t.Run("given no span in context, then trace tag is omitted", func(t *testing.T) {
		c := newTestCommenter(commenterFlags{dbDriver: true, dbFramework: true, traceValues: true})

		got := c.annotate(context.Background(), "SELECT 1")

		assert.NotContains(t, got, "traceparent=")
		assert.Contains(t, got, "db_driver='pq'")
	})

	t.Run("given every tag disabled, then the statement is untouched", func(t *testing.T) {
		c := newTestCommenter(commenterFlags{})

		got := c.annotate(context.Background(), "SELECT 1")
		assert.Equal(t, "SELECT 1", got)
	})
}

func TestNewCommenter(t *testing.T) {
	t.Run("given an engine, then driver and framework identity are taken from it", func(t *testing.T) {
		e := OpenDB(&fakeDriver{}, "fakepq", "dsn",
			WithLibrary("sqlx", "1.4.0"),
		)
		defer e.Close()

		c, err := newCommenter(e, nil)
		require.NoError(t, err)

		assert.Equal(t, "fakepq", c.driverName)
		assert.Equal(t, "sqlx:1.4.0", c.framework)
	})

	t.Run("given unknown option, then construction fails", func(t *testing.T) {
		e := OpenDB(&fakeDriver{}, "fakepq", "dsn")
		defer e.Close()

		_, err := newCommenter(e, map[string]bool{"bogus": true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bogus")
	})
}
