package safety

import (
	"os"
	"strings"
)

// sensitiveSubstrings is matched case-insensitively against each
// environment variable's name; a match excludes the variable from the
// sanitized copy.
var sensitiveSubstrings = []string{
	"PASSWORD", "TOKEN", "SECRET", "KEY", "CREDENTIAL", "API", "AUTH", "SESSION", "COOKIE",
}

// SanitizedEnviron returns a fresh copy of the process environment with
// every variable whose name contains a sensitive substring removed. The
// process environment itself is never mutated, and each call returns an
// independent slice safe for concurrent use.
func SanitizedEnviron() []string {
	src := os.Environ()
	out := make([]string, 0, len(src))
	for _, kv := range src {
		name, _, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		if isSensitiveName(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isSensitiveName(name string) bool {
	upper := strings.ToUpper(name)
	for _, s := range sensitiveSubstrings {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}
