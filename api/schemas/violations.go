package schemas

import (
	"strconv"
	"time"
)

// -- Violation Schemas --

// Violation is one reported finding produced by evaluating a rule against a
// file. Rule identity is denormalized onto the violation so reports stay
// stable even if the rule is later unregistered.
type Violation struct {
	RuleID   string   `json:"rule_id"`   // Identifier of the producing rule.
	RuleName string   `json:"rule_name"` // Human-readable name of the producing rule.
	Category Category `json:"category"`  // Category copied from the rule.
	Severity Severity `json:"severity"`  // Final severity after any adjustment hook.

	FilePath string `json:"file_path"`        // File the violation was found in.
	Line     int    `json:"line,omitempty"`   // 1-based line number, 0 when not applicable.
	Column   int    `json:"column,omitempty"` // 1-based column number, 0 when not applicable.

	Snippet     string `json:"snippet,omitempty"` // Offending source excerpt.
	Suggestion  string `json:"suggestion"`        // Concrete fix suggestion.
	Explanation string `json:"explanation"`       // Why this matters.

	// ImmediateAttention is recomputed by the engine as
	// (Severity == SeverityCritical) after severity adjustment. Raw rule
	// output is never trusted for this flag.
	ImmediateAttention bool `json:"immediate_attention"`
}

// Location renders the violation position as path:line:column, omitting the
// parts that are unset.
func (v Violation) Location() string {
	loc := v.FilePath
	if v.Line > 0 {
		loc += ":" + strconv.Itoa(v.Line)
		if v.Column > 0 {
			loc += ":" + strconv.Itoa(v.Column)
		}
	}
	return loc
}

// -- Result Schemas --

// Summary aggregates a violation list. It is always recomputed from the
// final, post-filter violations so the counts can never drift from the list
// they describe.
type Summary struct {
	Total      int              `json:"total"`       // Number of violations after filtering.
	BySeverity map[Severity]int `json:"by_severity"` // Count per severity level.
	ByCategory map[Category]int `json:"by_category"` // Count per category.
}

// Summarize computes a Summary strictly from the given violations.
func Summarize(violations []Violation) Summary {
	s := Summary{
		Total:      len(violations),
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[Category]int),
	}
	for _, v := range violations {
		s.BySeverity[v.Severity]++
		s.ByCategory[v.Category]++
	}
	return s
}

// AuditResult is the complete outcome of one engine run. The engine returns
// it fully formed and performs no further mutation; formatters and stores
// treat it as read-only.
type AuditResult struct {
	RunID   string    `json:"run_id"`  // Unique identifier for this run.
	Root    string    `json:"root"`    // Audit root directory.
	Started time.Time `json:"started"` // Wall-clock start of the run.

	Violations []Violation `json:"violations"` // Post-filter violations, in stable order.
	Summary    Summary     `json:"summary"`    // Aggregates over Violations.

	ExecutionTime time.Duration `json:"execution_time"` // Total engine time.
	FilesScanned  int           `json:"files_scanned"`  // Files successfully read and evaluated.
	RulesExecuted int           `json:"rules_executed"` // Rules that were applicable to this run.
}
