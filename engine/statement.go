package engine

import (
	"regexp"
	"strings"
)

var (
	// stringLiteralRegex matches single-quoted strings, including escaped quotes.
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches integer and float literals.
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals such as 0xDEADBEEF.
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// spanName derives a span name from a statement execution. Span names must
// not be empty, so executions with no statement text fall back to the
// operation name and finally to "SQL".
func spanName(ec *ExecutionContext) string {
	if ec.Statement != "" {
		if op := extractOperation(ec.Statement); op != "" {
			return op
		}
	}
	if ec.Operation != "" {
		return ec.Operation
	}
	return "SQL"
}

// extractOperation returns the uppercased SQL verb of a query, or "" for an
// empty query. Used for the db.operation attribute and span naming.
//
//	extractOperation("SELECT * FROM users") // "SELECT"
//	extractOperation("insert into users")   // "INSERT"
func extractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if idx := strings.IndexAny(query, " \t\n\r"); idx >= 0 {
		query = query[:idx]
	}
	return strings.ToUpper(query)
}

// DefaultQuerySanitizer replaces literal values in a query with placeholders
// so sensitive data does not end up in span attributes.
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123 AND name = 'john'")
//	// "SELECT * FROM users WHERE id = ? AND name = '?'"
//
// This is a regex-based approximation, not a SQL parser; use a custom
// sanitizer via WithQuerySanitizer when your queries need more care.
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	query = hexLiteralRegex.ReplaceAllString(query, "?")
	return query
}
