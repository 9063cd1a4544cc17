// File: internal/rules/quality.go
package rules

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/codewarden/warden-cli/api/schemas"
)

// -- missing-test-file --

// sourceExtensions are the file kinds the missing-test rule covers, mapped
// to the test-name patterns accepted for them.
var sourceExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".go", ".py"}

// missingTestRule is a cross-file check: it consults RuleContext.RepoFiles
// to decide whether any recognizable test exists for the file under
// evaluation.
type missingTestRule struct{}

func (r *missingTestRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "missing-test-file",
		Name:        "Missing Test File",
		Category:    schemas.CategoryTesting,
		Severity:    schemas.SeverityMedium,
		Description: "Detects source files with no sibling test anywhere in the repository.",
		Tags:        []string{"coverage"},
	}
}

func (r *missingTestRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	base := path.Base(rc.FilePath)
	ext := path.Ext(base)
	if !hasSuffixAny(base, sourceExtensions...) || isTestName(base) {
		return nil, nil
	}
	// Entry points and config files don't warrant dedicated tests.
	stem := strings.TrimSuffix(base, ext)
	if stem == "index" || stem == "main" || strings.HasSuffix(base, ".config"+ext) {
		return nil, nil
	}

	for _, other := range rc.RepoFiles {
		if isTestFor(stem, path.Base(other)) {
			return nil, nil
		}
	}
	return []schemas.Violation{{
		Suggestion:  fmt.Sprintf("Add a test file covering %s (e.g. %s.test%s).", base, stem, ext),
		Explanation: "Untested modules regress silently; every non-trivial source file should have a companion test.",
	}}, nil
}

func isTestName(base string) bool {
	return strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasSuffix(base, "_test.go") ||
		strings.HasPrefix(base, "test_")
}

func isTestFor(stem, candidate string) bool {
	if !isTestName(candidate) {
		return false
	}
	return strings.HasPrefix(candidate, stem+".test.") ||
		strings.HasPrefix(candidate, stem+".spec.") ||
		strings.HasPrefix(candidate, stem+"_test.") ||
		strings.HasPrefix(candidate, "test_"+stem+".")
}

// -- no-deep-relative-imports --

var deepImportPattern = regexp.MustCompile(`(?:from\s+|require\s*\(\s*)['"]((?:\.\./){3,}[^'"]*)['"]`)

type deepImportRule struct{}

func (r *deepImportRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-deep-relative-imports",
		Name:        "No Deep Relative Imports",
		Category:    schemas.CategoryArchitecture,
		Severity:    schemas.SeverityMedium,
		Description: "Detects imports that climb three or more directory levels.",
		Tags:        []string{"imports", "layering"},
	}
}

func (r *deepImportRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !hasSuffixAny(rc.FilePath, ".js", ".jsx", ".ts", ".tsx") {
		return nil, nil
	}
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if m := deepImportPattern.FindStringSubmatch(line); m != nil {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Define a path alias (e.g. @app/) or restructure so the dependency is local.",
				Explanation: fmt.Sprintf("The import %q couples this file to a distant part of the tree and breaks on any directory move.", m[1]),
			})
		}
	}
	return violations, nil
}

// -- no-blocking-sync-io --

var blockingCallPattern = regexp.MustCompile(`\b(?:fs\.\w+Sync|execSync|spawnSync|readFileSync|writeFileSync)\s*\(`)

// blockingIORule is restricted to server frameworks where synchronous I/O
// stalls the event loop for every request.
type blockingIORule struct{}

func (r *blockingIORule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-blocking-sync-io",
		Name:        "No Blocking Synchronous I/O",
		Category:    schemas.CategoryPerformance,
		Severity:    schemas.SeverityMedium,
		Description: "Detects synchronous filesystem and process calls in server code paths.",
		Frameworks:  []string{"express", "fastify", "koa", "nest"},
		Tags:        []string{"event-loop"},
	}
}

func (r *blockingIORule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !hasSuffixAny(rc.FilePath, ".js", ".ts", ".mjs") {
		return nil, nil
	}
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if m := blockingCallPattern.FindString(line); m != "" {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Use the promise-based equivalent (fs/promises, child_process with await).",
				Explanation: fmt.Sprintf("%s blocks the event loop, so every concurrent request waits for this call.", strings.TrimSuffix(m, "(")),
			})
		}
	}
	return violations, nil
}

// -- max-line-length --

const maxLineLength = 140

type longLineRule struct{}

func (r *longLineRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "max-line-length",
		Name:        "Maximum Line Length",
		Category:    schemas.CategoryStyle,
		Severity:    schemas.SeveritySuggestion,
		Description: "Flags lines longer than 140 characters.",
	}
}

func (r *longLineRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if len(line) > maxLineLength {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Column:      maxLineLength + 1,
				Suggestion:  "Wrap the line or extract intermediate values.",
				Explanation: fmt.Sprintf("Line is %d characters; long lines force horizontal scrolling in reviews.", len(line)),
			})
		}
	}
	return violations, nil
}

// -- no-console-log --

var consolePattern = regexp.MustCompile(`\bconsole\.(log|debug|trace)\s*\(`)

type consoleLogRule struct{}

func (r *consoleLogRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-console-log",
		Name:        "No Console Debug Output",
		Category:    schemas.CategoryStyle,
		Severity:    schemas.SeverityLow,
		Description: "Detects console.log/debug/trace calls left in source.",
	}
}

func (r *consoleLogRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !hasSuffixAny(rc.FilePath, ".js", ".jsx", ".ts", ".tsx", ".mjs") {
		return nil, nil
	}
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if consolePattern.MatchString(line) {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Remove the call or route it through the project's logger.",
				Explanation: "Debug output in production pollutes logs and can leak internal state.",
			})
		}
	}
	return violations, nil
}

// -- max-file-size --

const maxFileLines = 500

type oversizedFileRule struct{}

func (r *oversizedFileRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "max-file-size",
		Name:        "Maximum File Size",
		Category:    schemas.CategoryMaintainability,
		Severity:    schemas.SeverityLow,
		Description: "Flags files longer than 500 lines.",
	}
}

func (r *oversizedFileRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	count := len(lines(rc.Content))
	if count <= maxFileLines {
		return nil, nil
	}
	return []schemas.Violation{{
		Line:        maxFileLines + 1,
		Suggestion:  "Split the file along its natural responsibilities.",
		Explanation: fmt.Sprintf("File has %d lines; files this large accumulate unrelated concerns.", count),
	}}, nil
}

// -- track-todos --

var todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX)\b[:\s]`)

type todoRule struct{}

func (r *todoRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "track-todos",
		Name:        "Track TODO Markers",
		Category:    schemas.CategoryMaintainability,
		Severity:    schemas.SeveritySuggestion,
		Description: "Surfaces TODO/FIXME/HACK markers so they reach the issue tracker.",
	}
}

func (r *todoRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if m := todoPattern.FindString(line); m != "" {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "File an issue for the marker or resolve it.",
				Explanation: "Markers that never leave the source are forgotten work.",
			})
		}
	}
	return violations, nil
}
