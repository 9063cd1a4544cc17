// File: internal/assist/assist.go

// Package assist turns a finished audit into remediation advice by asking a
// language model to explain and prioritize the findings. The model provider
// sits behind schemas.Generator so the advisor is testable offline.
package assist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
)

// maxDigestViolations caps how many findings are embedded in the prompt.
// Past this point more detail only dilutes the advice.
const maxDigestViolations = 40

// Advisor produces remediation guidance for audit results.
type Advisor struct {
	gen    schemas.Generator
	logger *zap.Logger
}

// New creates an advisor over the given generator.
func New(gen schemas.Generator, logger *zap.Logger) (*Advisor, error) {
	if gen == nil {
		return nil, fmt.Errorf("a generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{gen: gen, logger: logger.Named("Assist")}, nil
}

// Explain asks the model for prioritized remediation advice covering the
// whole result. Results with no violations short-circuit without a call.
func (a *Advisor) Explain(ctx context.Context, result *schemas.AuditResult) (string, error) {
	if result == nil || len(result.Violations) == 0 {
		return "No violations to explain. The audit came back clean.", nil
	}

	prompt := buildPrompt(result)
	a.logger.Debug("Requesting remediation advice.",
		zap.Int("violations", len(result.Violations)),
		zap.Int("prompt_bytes", len(prompt)))

	advice, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("requesting remediation advice: %w", err)
	}
	return strings.TrimSpace(advice), nil
}

// Close releases the underlying generator.
func (a *Advisor) Close() error {
	return a.gen.Close()
}

// buildPrompt renders the violation digest the model reasons over. Findings
// arrive in discovery order, so they are re-sorted by severity first; the
// cap then trims the least severe entries, not the tail of the scan.
func buildPrompt(result *schemas.AuditResult) string {
	ordered := make([]schemas.Violation, len(result.Violations))
	copy(ordered, result.Violations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity.Rank() < ordered[j].Severity.Rank()
	})
	var b strings.Builder
	b.WriteString("You are a senior engineer reviewing the findings of a static source-tree audit.\n")
	b.WriteString("Write a short, prioritized remediation plan: group related findings, lead with the\n")
	b.WriteString("highest-severity items, and give one concrete fix per group. Plain text only.\n\n")

	fmt.Fprintf(&b, "Project root: %s\n", result.Root)
	fmt.Fprintf(&b, "Files scanned: %d, rules executed: %d, total findings: %d\n\n",
		result.FilesScanned, result.RulesExecuted, result.Summary.Total)

	b.WriteString("Findings:\n")
	count := len(ordered)
	if count > maxDigestViolations {
		count = maxDigestViolations
	}
	for _, v := range ordered[:count] {
		fmt.Fprintf(&b, "- [%s] %s at %s: %s", v.Severity, v.RuleID, v.Location(), v.Explanation)
		if v.Snippet != "" {
			fmt.Fprintf(&b, " (snippet: %q)", v.Snippet)
		}
		b.WriteString("\n")
	}
	if omitted := len(ordered) - count; omitted > 0 {
		fmt.Fprintf(&b, "... and %d more findings omitted for brevity.\n", omitted)
	}
	return b.String()
}
