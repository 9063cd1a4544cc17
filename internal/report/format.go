// File: internal/report/format.go
package report

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/codewarden/warden-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// severityHeadings maps each severity to its report section heading.
var severityHeadings = map[schemas.Severity]string{
	schemas.SeverityCritical:   "CRITICAL (fix immediately)",
	schemas.SeverityHigh:       "HIGH",
	schemas.SeverityMedium:     "MEDIUM",
	schemas.SeverityLow:        "LOW",
	schemas.SeveritySuggestion: "SUGGESTIONS",
}

// Text renders a human-oriented report, grouped by severity in fixed rank
// order (CRITICAL first). It is pure: the result is never mutated.
func Text(result *schemas.AuditResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Audit %s at %s\n", result.RunID, result.Root)
	fmt.Fprintf(&b, "%d violation(s) across %d file(s), %d rule(s) executed in %s\n",
		result.Summary.Total, result.FilesScanned, result.RulesExecuted,
		result.ExecutionTime.Round(1e6))

	if result.Summary.Total == 0 {
		b.WriteString("\nNo violations found.\n")
		return b.String()
	}

	grouped := GroupBySeverity(result.Violations)
	for _, severity := range schemas.SeverityOrder {
		group := grouped[severity]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", severityHeadings[severity], len(group))
		b.WriteString(strings.Repeat("-", len(severityHeadings[severity])+8) + "\n")
		for _, v := range group {
			fmt.Fprintf(&b, "  [%s] %s\n", v.RuleID, v.Location())
			fmt.Fprintf(&b, "      %s: %s\n", v.Category, v.RuleName)
			if v.Snippet != "" {
				fmt.Fprintf(&b, "      > %s\n", strings.TrimSpace(v.Snippet))
			}
			fmt.Fprintf(&b, "      why: %s\n", v.Explanation)
			fmt.Fprintf(&b, "      fix: %s\n", v.Suggestion)
		}
	}
	return b.String()
}

// ToJSON serializes a result for machine consumption. The output round-trips
// through FromJSON without loss.
func ToJSON(result *schemas.AuditResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// FromJSON deserializes a result previously produced by ToJSON.
func FromJSON(data []byte) (*schemas.AuditResult, error) {
	var result schemas.AuditResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding audit result: %w", err)
	}
	return &result, nil
}

// Reduced is a compact view of a result for embedding in other payloads:
// the summary plus per-violation one-liners, without snippets or
// explanations.
type Reduced struct {
	RunID         string          `json:"run_id"`
	Summary       schemas.Summary `json:"summary"`
	FilesScanned  int             `json:"files_scanned"`
	RulesExecuted int             `json:"rules_executed"`
	ShouldFail    bool            `json:"should_fail"`
	Violations    []ReducedItem   `json:"violations"`
}

// ReducedItem is one violation line in the reduced view.
type ReducedItem struct {
	RuleID   string           `json:"rule_id"`
	Severity schemas.Severity `json:"severity"`
	Location string           `json:"location"`
}

// Reduce builds the compact view. shouldFail is passed in because the
// failure decision belongs to the engine, not the formatter.
func Reduce(result *schemas.AuditResult, shouldFail bool) Reduced {
	r := Reduced{
		RunID:         result.RunID,
		Summary:       result.Summary,
		FilesScanned:  result.FilesScanned,
		RulesExecuted: result.RulesExecuted,
		ShouldFail:    shouldFail,
		Violations:    make([]ReducedItem, 0, len(result.Violations)),
	}
	for _, v := range result.Violations {
		r.Violations = append(r.Violations, ReducedItem{
			RuleID:   v.RuleID,
			Severity: v.Severity,
			Location: v.Location(),
		})
	}
	return r
}

// GroupBySeverity buckets violations by severity. Within each bucket the
// input order is preserved.
func GroupBySeverity(violations []schemas.Violation) map[schemas.Severity][]schemas.Violation {
	out := make(map[schemas.Severity][]schemas.Violation)
	for _, v := range violations {
		out[v.Severity] = append(out[v.Severity], v)
	}
	return out
}

// GroupByCategory buckets violations by category, preserving input order.
func GroupByCategory(violations []schemas.Violation) map[schemas.Category][]schemas.Violation {
	out := make(map[schemas.Category][]schemas.Violation)
	for _, v := range violations {
		out[v.Category] = append(out[v.Category], v)
	}
	return out
}

// GroupByFile buckets violations by file path, preserving input order.
func GroupByFile(violations []schemas.Violation) map[string][]schemas.Violation {
	out := make(map[string][]schemas.Violation)
	for _, v := range violations {
		out[v.FilePath] = append(out[v.FilePath], v)
	}
	return out
}
