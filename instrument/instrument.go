package instrument

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/trellis-labs/dbtap-go/engine"
)

// config holds the options accepted by Instrument.
type config struct {
	tracerProvider   trace.TracerProvider
	engine           *engine.Engine
	engines          []*engine.Engine
	enableCommenter  bool
	commenterOptions map[string]bool
}

func newConfig(opts ...Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures Instrument.
type Option func(*config)

// WithTracerProvider sets the tracer provider used for every tracer this
// instrumentation creates. Defaults to the process-wide global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithEngine instruments the given engine immediately; its tracer is
// returned from Instrument.
func WithEngine(e *engine.Engine) Option {
	return func(cfg *config) {
		cfg.engine = e
	}
}

// WithEngines instruments each engine immediately; their tracers are
// returned from Instrument in the same order.
func WithEngines(engines ...*engine.Engine) Option {
	return func(cfg *config) {
		cfg.engines = engines
	}
}

// WithEnableCommenter turns on SQL comment injection for every tracer this
// instrumentation creates. Off by default.
func WithEnableCommenter() Option {
	return func(cfg *config) {
		cfg.enableCommenter = true
	}
}

// WithCommenterOptions fine-tunes which comment tags are emitted. Every
// key defaults to true; unknown keys make Instrument fail.
func WithCommenterOptions(opts map[string]bool) Option {
	return func(cfg *config) {
		cfg.commenterOptions = opts
	}
}

// Instrument installs tracing wrappers around every factory registered in
// the registry: the synchronous engine-creation entry point always, the
// asynchronous one only for libraries whose detected version is at least
// 1.4. Each wrapped creation call runs the original function first and,
// only on success, attaches a tracer to the resulting engine; creation
// errors propagate to the caller unchanged.
//
// Engines passed via WithEngine or WithEngines are instrumented
// immediately and their tracers returned, in input order. With neither
// option the return is nil: instrumentation still took effect for every
// engine created through the registry from now on.
//
// Calling Instrument while already instrumented installs no further
// wrappers; explicitly supplied engines are still instrumented.
func (r *Registry) Instrument(opts ...Option) ([]*engine.Tracer, error) {
	cfg := newConfig(opts...)

	// Reject typo'd commenter options before any side effect.
	if err := engine.ValidateCommenterOptions(cfg.commenterOptions); err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}

	r.mu.Lock()
	if r.settings == nil {
		r.settings = &traceSettings{
			tracerProvider:   cfg.tracerProvider,
			enableCommenter:  cfg.enableCommenter,
			commenterOptions: cfg.commenterOptions,
		}
		for name, f := range r.factories {
			r.originals[name] = f
			r.factories[name] = r.wrapLocked(name, f)
		}
		logger.Debug().Int("factories", len(r.originals)).Msg("instrumentation installed")
	} else {
		logger.Debug().Msg("already instrumented, wrappers left in place")
	}
	r.mu.Unlock()

	var tracers []*engine.Tracer
	if cfg.engine != nil {
		t, err := engine.NewTracer(cfg.tracerProvider, cfg.engine,
			cfg.enableCommenter, cfg.commenterOptions)
		if err != nil {
			return nil, fmt.Errorf("instrument engine: %w", err)
		}
		tracers = append(tracers, t)
	}
	for i, e := range cfg.engines {
		t, err := engine.NewTracer(cfg.tracerProvider, e,
			cfg.enableCommenter, cfg.commenterOptions)
		if err != nil {
			for _, created := range tracers {
				created.Detach()
			}
			return nil, fmt.Errorf("instrument engine %d: %w", i, err)
		}
		tracers = append(tracers, t)
	}

	if len(tracers) > 0 {
		r.mu.Lock()
		r.tracers = append(r.tracers, tracers...)
		r.mu.Unlock()
	}
	return tracers, nil
}

// Uninstrument restores every original factory and detaches the tracers
// created while instrumented, so subsequent engines are created with the
// original, unobserved behavior. The async entry point is restored under
// the same version gate it was installed under, because restoring the
// original factory pointer removes exactly the wrapper that wrapLocked
// chose. Safe to call when nothing was instrumented.
func (r *Registry) Uninstrument() {
	r.mu.Lock()
	if r.settings == nil {
		r.mu.Unlock()
		return
	}

	for name, orig := range r.originals {
		r.factories[name] = orig
		delete(r.originals, name)
	}
	tracers := r.tracers
	r.tracers = nil
	r.settings = nil
	r.mu.Unlock()

	for _, t := range tracers {
		t.Detach()
	}
	logger.Debug().Int("tracers", len(tracers)).Msg("instrumentation removed")
}

// Instrument installs instrumentation on the default registry.
func Instrument(opts ...Option) ([]*engine.Tracer, error) {
	return Default().Instrument(opts...)
}

// Uninstrument removes instrumentation from the default registry.
func Uninstrument() {
	Default().Uninstrument()
}
