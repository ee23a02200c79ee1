package instrument

import "github.com/rs/zerolog"

// logger emits instrumentation lifecycle events (wrapper install,
// version-gate decisions, restore). Disabled by default so the library
// stays silent in host processes that did not ask for it.
var logger = zerolog.Nop()

// SetLogger routes lifecycle logging to the given logger.
//
//	instrument.SetLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
func SetLogger(l zerolog.Logger) {
	logger = l
}
