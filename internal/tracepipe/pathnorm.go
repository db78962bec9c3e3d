package tracepipe

import (
	"strings"

	"github.com/fenwick/pageprime/internal/pack"
)

// defaultIgnorePrefixes are virtual or temporary filesystem trees never
// worth caching.
var defaultIgnorePrefixes = []string{
	"/proc/", "/sys/", "/dev/", "/tmp/",
	"/run/", "/var/run/", "/var/log/", "/var/lock/",
}

// NormalisePath canonicalises an absolute path in one left-to-right pass:
// it collapses "//" and "/./" to "/", resolves "/../" by deleting the
// preceding segment, and strips trailing slashes (except for the root
// itself). It is idempotent: NormalisePath(NormalisePath(p)) == NormalisePath(p).
// Non-absolute input is returned unchanged; callers reject it separately.
func NormalisePath(raw string) string {
	if raw == "" || raw[0] != '/' {
		return raw
	}

	segments := make([]string, 0, strings.Count(raw, "/"))
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
			// collapses "//" and "/./"
			continue
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
			// ".." at the root collapses to "/": nothing to pop.
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// PathPrefixOption configures tracing against a mounted alternate root:
// when set, a normalised absolute path is retried as Prefix+path, and the
// rewritten form is used if it exists on Device.
type PathPrefixOption struct {
	Device pack.DeviceID
	Prefix string
}

// PathExistsFunc reports whether path exists on the given device. It is
// injected so the filter can be unit tested without real mount points.
type PathExistsFunc func(path string, dev pack.DeviceID) bool

// Filter applies C2's rejection rules and optional prefix rewrite/dedup on
// top of NormalisePath.
type Filter struct {
	// PrefixFilter, if non-empty, rejects any path not starting with it.
	PrefixFilter string
	// PathPrefix, if non-nil, enables the mounted-alternate-root rewrite.
	PathPrefix *PathPrefixOption
	// Exists checks existence for the prefix rewrite; required when
	// PathPrefix is set.
	Exists PathExistsFunc

	seen map[string]struct{}
}

// NewFilter returns a Filter ready to accept paths.
func NewFilter() *Filter {
	return &Filter{seen: make(map[string]struct{})}
}

// Accept normalises raw and applies rejection rules, the prefix rewrite,
// and de-duplication. It returns the final path to scan and true, or ""
// and false if the path should be ignored entirely. A rejected path is
// never reported as an error: rejection is a normal, silent outcome here,
// the caller (ingester) is responsible for any logging it wants.
func (f *Filter) Accept(raw string) (string, bool) {
	if raw == "" || raw[0] != '/' {
		return "", false
	}

	path := NormalisePath(raw)

	if len(path) > pack.PACK_PATH_MAX {
		return "", false
	}

	if ignoredPath(path) {
		return "", false
	}

	if f.PrefixFilter != "" && !strings.HasPrefix(path, f.PrefixFilter) {
		return "", false
	}

	if f.PathPrefix != nil && f.Exists != nil {
		rewritten := f.PathPrefix.Prefix + path
		if f.Exists(rewritten, f.PathPrefix.Device) {
			path = rewritten
		}
	}

	if _, dup := f.seen[path]; dup {
		return "", false
	}
	f.seen[path] = struct{}{}

	return path, true
}

func ignoredPath(path string) bool {
	for _, prefix := range defaultIgnorePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
