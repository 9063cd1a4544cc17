// File: internal/rules/rules.go

// Package rules holds the builtin rule catalog. Every rule here conforms to
// the schemas.Rule contract; the engine knows nothing about any of them.
package rules

import (
	"context"
	"strings"

	"github.com/codewarden/warden-cli/api/schemas"
)

// Builtin returns a fresh instance of every builtin rule, in catalog order.
func Builtin() []schemas.Rule {
	return []schemas.Rule{
		&secretsRule{},
		&jwtRule{},
		&htmlSecurityRule{},
		&innerHTMLRule{},
		&missingTestRule{},
		&deepImportRule{},
		&blockingIORule{},
		&longLineRule{},
		&consoleLogRule{},
		&oversizedFileRule{},
		&todoRule{},
	}
}

// lines splits file content once per rule invocation. Line numbers reported
// by rules are 1-based.
func lines(content string) []string {
	return strings.Split(content, "\n")
}

// snippet trims and caps one source line for inclusion in a violation.
func snippet(line string) string {
	s := strings.TrimSpace(line)
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

// hasSuffixAny reports whether the path ends in any of the given extensions.
func hasSuffixAny(path string, exts ...string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// checkCancelled lets long per-file loops bail out cooperatively. The engine
// imposes no deadline, but callers running rules directly may.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
