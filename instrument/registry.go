package instrument

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/trellis-labs/dbtap-go/engine"
)

// Factory is the narrow "creatable engine" surface of a database access
// library. The interception layer depends only on this interface; host
// library adapters implement it.
type Factory interface {
	// CreateEngine creates an engine synchronously. No connection is
	// required to have been established when it returns.
	CreateEngine(driverName, dsn string) (*engine.Engine, error)

	// Library reports the access library's name and dotted version.
	Library() (name, version string)
}

// AsyncFactory is implemented by factories whose library also exposes an
// asynchronous engine-creation entry point (library version 1.4 and up).
// The interception layer wraps it only when the detected features allow.
type AsyncFactory interface {
	Factory

	// CreateEngineContext creates an engine and verifies connectivity
	// under ctx.
	CreateEngineContext(ctx context.Context, driverName, dsn string) (*engine.Engine, error)
}

// traceSettings is the configuration captured when instrumentation is
// installed, shared by every wrapper until Uninstrument.
type traceSettings struct {
	tracerProvider   trace.TracerProvider
	enableCommenter  bool
	commenterOptions map[string]bool
}

// Registry is the explicit process-wide state of the interception layer:
// the named engine factories, the originals saved while instrumented, and
// the tracers created on the registry's behalf. There is no hidden
// module-level patching; instrumentation swaps factory pointers inside the
// registry and restores them deterministically.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	originals map[string]Factory
	tracers   []*engine.Tracer
	settings  *traceSettings // non-nil while instrumented
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		originals: make(map[string]Factory),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the package-default registry. Its lifecycle is explicit:
// instrumentation state is initialized by the first Instrument call and
// torn down by Uninstrument.
func Default() *Registry {
	return defaultRegistry
}

// RegisterFactory adds a named factory. If the registry is currently
// instrumented the factory is wrapped immediately, so engines it creates
// from now on are traced like everyone else's.
func (r *Registry) RegisterFactory(name string, f Factory) error {
	if f == nil {
		return fmt.Errorf("register factory %q: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("register factory %q: already registered", name)
	}

	if r.settings != nil {
		r.originals[name] = f
		f = r.wrapLocked(name, f)
	}
	r.factories[name] = f
	return nil
}

// Factory returns the registered factory under name. While instrumented,
// the returned factory is the tracing wrapper.
func (r *Registry) Factory(name string) (Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[name]
	return f, ok
}

// Instrumented reports whether wrappers are currently installed.
func (r *Registry) Instrumented() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings != nil
}

// wrapLocked builds the tracing wrapper for a factory, version-gating the
// async entry point. Callers hold r.mu.
func (r *Registry) wrapLocked(name string, f Factory) Factory {
	libName, libVersion := f.Library()
	features := DetectFeatures(libVersion)

	base := tracedFactory{next: f, reg: r}

	if features.AsyncEngines {
		if af, ok := f.(AsyncFactory); ok {
			logger.Debug().
				Str("factory", name).
				Str("library", libName).
				Str("version", libVersion).
				Bool("async", true).
				Msg("factory instrumented")
			return &tracedAsyncFactory{tracedFactory: base, nextAsync: af}
		}
	}

	logger.Debug().
		Str("factory", name).
		Str("library", libName).
		Str("version", libVersion).
		Bool("async", false).
		Msg("factory instrumented")
	return &base
}

// attach creates a tracer for an engine produced by a wrapped factory.
// A nil settings pointer means Uninstrument raced the creation; the engine
// is then left untraced, matching restored behavior.
func (r *Registry) attach(e *engine.Engine) {
	r.mu.Lock()
	s := r.settings
	r.mu.Unlock()
	if s == nil {
		return
	}

	t, err := engine.NewTracer(s.tracerProvider, e, s.enableCommenter, s.commenterOptions)
	if err != nil {
		// Options were validated at Instrument time, so this only fires
		// for a nil engine, which wrapped factories never produce.
		logger.Warn().Err(err).Msg("attach tracer")
		return
	}

	r.mu.Lock()
	r.tracers = append(r.tracers, t)
	r.mu.Unlock()
}

// ObserveEngine attaches a tracer to an engine created outside a wrapped
// factory, if instrumentation is currently installed; otherwise it is a
// no-op. Adapter convenience constructors call this so that both creation
// call styles are observed.
func (r *Registry) ObserveEngine(e *engine.Engine) {
	if e == nil {
		return
	}
	r.attach(e)
}

// tracedFactory runs the original creation call first, verbatim, and only
// on success attaches a tracer to the new engine. Creation errors
// propagate unchanged.
type tracedFactory struct {
	next Factory
	reg  *Registry
}

// CreateEngine implements Factory.
func (f *tracedFactory) CreateEngine(driverName, dsn string) (*engine.Engine, error) {
	e, err := f.next.CreateEngine(driverName, dsn)
	if err != nil {
		return nil, err
	}
	f.reg.attach(e)
	return e, nil
}

// Library implements Factory.
func (f *tracedFactory) Library() (string, string) {
	return f.next.Library()
}

// tracedAsyncFactory additionally wraps the async entry point. It is only
// installed when the library's feature detection allows, so factories for
// pre-1.4 libraries never gain an async method they do not have.
type tracedAsyncFactory struct {
	tracedFactory
	nextAsync AsyncFactory
}

// CreateEngineContext implements AsyncFactory.
func (f *tracedAsyncFactory) CreateEngineContext(
	ctx context.Context,
	driverName, dsn string,
) (*engine.Engine, error) {
	e, err := f.nextAsync.CreateEngineContext(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}
	f.reg.attach(e)
	return e, nil
}
