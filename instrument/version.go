package instrument

import (
	"strconv"
	"strings"
)

// Version is a dotted release tuple, e.g. {1, 4, 0} for "1.4.0".
// Pre-release suffixes are ignored: "1.4.0b2" parses as {1, 4, 0}.
type Version []int

// ParseVersion parses a dotted version string. Parsing stops at the first
// component without a leading digit, so a malformed string yields a short
// (possibly empty) tuple that compares low.
func ParseVersion(s string) Version {
	parts := strings.Split(strings.TrimSpace(s), ".")
	v := make(Version, 0, len(parts))
	for _, part := range parts {
		digits := part
		for i, r := range part {
			if r < '0' || r > '9' {
				digits = part[:i]
				break
			}
		}
		if digits == "" {
			break
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			break
		}
		v = append(v, n)
	}
	return v
}

// Compare returns -1, 0 or 1 ordering v against o. Missing components
// compare as zero, so {1, 4} equals {1, 4, 0}.
func (v Version) Compare(o Version) int {
	n := len(v)
	if len(o) > n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(o) {
			b = o[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v is at or above the given release tuple.
func (v Version) AtLeast(parts ...int) bool {
	return v.Compare(Version(parts)) >= 0
}

// String renders the tuple back to dotted form.
func (v Version) String() string {
	if len(v) == 0 {
		return "0"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// asyncEngineMinVersion is the first host library release that exposes an
// asynchronous engine-creation entry point. Older releases are skipped
// silently, not errored.
var asyncEngineMinVersion = Version{1, 4}

// Features captures what the host library supports, resolved once from its
// reported version. Both Instrument and Uninstrument consume the same
// struct, so the install and restore paths cannot gate differently.
type Features struct {
	// AsyncEngines reports whether the library has an async
	// engine-creation entry point to wrap.
	AsyncEngines bool
}

// DetectFeatures resolves the feature set for a library version string.
func DetectFeatures(libVersion string) Features {
	return Features{
		AsyncEngines: ParseVersion(libVersion).Compare(asyncEngineMinVersion) >= 0,
	}
}
