package engine

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// Commenter option keys. Every key defaults to enabled.
const (
	// CommenterOptionDBDriver controls the db_driver tag: the name of the
	// underlying driver, e.g. db_driver='pq'.
	CommenterOptionDBDriver = "db_driver"

	// CommenterOptionDBFramework controls the db_framework tag: the access
	// library name and version, e.g. db_framework='sqlx%3A1.4.0'.
	CommenterOptionDBFramework = "db_framework"

	// CommenterOptionTraceContext controls the traceparent tag carrying
	// W3C trace context, e.g. traceparent='00-<trace-id>-<span-id>-01'.
	CommenterOptionTraceContext = "opentelemetry_values"
)

// ValidateCommenterOptions rejects unrecognized commenter option keys. A
// typo'd key would silently change the emitted comment, so configuration
// fails fast instead.
func ValidateCommenterOptions(opts map[string]bool) error {
	for k := range opts {
		switch k {
		case CommenterOptionDBDriver, CommenterOptionDBFramework, CommenterOptionTraceContext:
		default:
			return fmt.Errorf("unknown commenter option %q", k)
		}
	}
	return nil
}

// commenterFlags is the parsed, immutable form of the commenter options.
type commenterFlags struct {
	dbDriver    bool
	dbFramework bool
	traceValues bool
}

func parseCommenterOptions(opts map[string]bool) (commenterFlags, error) {
	if err := ValidateCommenterOptions(opts); err != nil {
		return commenterFlags{}, err
	}
	flags := commenterFlags{dbDriver: true, dbFramework: true, traceValues: true}
	for k, v := range opts {
		switch k {
		case CommenterOptionDBDriver:
			flags.dbDriver = v
		case CommenterOptionDBFramework:
			flags.dbFramework = v
		case CommenterOptionTraceContext:
			flags.traceValues = v
		}
	}
	return flags, nil
}

// commenter appends a structured comment to outgoing statement text. The
// serialized form follows the sqlcommenter convention: keys and values
// URL-encoded, values single-quoted with escaped quotes, tags sorted, the
// whole block appended as /*...*/; so downstream tooling can parse it
// deterministically.
type commenter struct {
	flags      commenterFlags
	driverName string
	framework  string
	propagator propagation.TextMapPropagator
}

func newCommenter(e *Engine, opts map[string]bool) (*commenter, error) {
	flags, err := parseCommenterOptions(opts)
	if err != nil {
		return nil, err
	}
	libName, libVersion := e.Library()
	return &commenter{
		flags:      flags,
		driverName: e.DriverName(),
		framework:  libName + ":" + libVersion,
		propagator: propagation.TraceContext{},
	}, nil
}

// annotate returns the statement with the comment block appended. The
// trace context is taken from ctx, so annotate must run after the span for
// this execution has been started.
func (c *commenter) annotate(ctx context.Context, query string) string {
	tags := make(map[string]string, 4)

	if c.flags.dbDriver {
		tags["db_driver"] = c.driverName
	}
	if c.flags.dbFramework {
		tags["db_framework"] = c.framework
	}
	if c.flags.traceValues {
		carrier := propagation.MapCarrier{}
		c.propagator.Inject(ctx, carrier)
		for k, v := range carrier {
			tags[k] = v
		}
	}

	comment := serializeTags(tags)
	if comment == "" {
		return query
	}
	return query + " " + comment + ";"
}

func serializeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, serializeKey(k)+"="+serializeValue(v))
	}
	sort.Strings(pairs)
	return "/*" + strings.Join(pairs, ",") + "*/"
}

func serializeKey(key string) string {
	return escapeMetaChars(urlEncode(key))
}

func serializeValue(val string) string {
	return "'" + escapeMetaChars(urlEncode(val)) + "'"
}

// urlEncode percent-encodes a tag component. Spaces encode as %20, not +,
// per the sqlcommenter convention.
func urlEncode(val string) string {
	return strings.ReplaceAll(url.QueryEscape(val), "+", "%20")
}

// escapeMetaChars escapes single quotes so a value cannot terminate the
// surrounding SQL comment early.
func escapeMetaChars(val string) string {
	return strings.ReplaceAll(val, "'", `\'`)
}
