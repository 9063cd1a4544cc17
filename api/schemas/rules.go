package schemas

import (
	"context"
	"fmt"
)

// -- Rule Contract --

// RuleMeta describes a rule's identity and classification. Every registered
// rule exposes one immutable RuleMeta; the registry validates it once at
// registration time and treats it as read-only afterwards.
type RuleMeta struct {
	ID          string   `json:"id"`          // Globally unique rule identifier (e.g. "no-hardcoded-secrets").
	Name        string   `json:"name"`        // Human-readable rule name.
	Category    Category `json:"category"`    // Concern area, from the closed category set.
	Severity    Severity `json:"severity"`    // Default severity for violations this rule produces.
	Description string   `json:"description"` // One-paragraph explanation of what the rule detects.

	// Frameworks optionally restricts the rule to projects detected as using
	// one of the listed frameworks. An empty list means the rule applies to
	// every project.
	Frameworks []string `json:"frameworks,omitempty"`

	Tags []string `json:"tags,omitempty"` // Free-form labels for grouping and docs.
}

// Validate checks the required fields against the closed sets. Errors name
// the offending field so registration failures are actionable.
func (m RuleMeta) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("rule is missing required field %q", "id")
	}
	if m.Name == "" {
		return fmt.Errorf("rule %q is missing required field %q", m.ID, "name")
	}
	if !m.Category.Valid() {
		return fmt.Errorf("rule %q has invalid category %q", m.ID, m.Category)
	}
	if !m.Severity.Valid() {
		return fmt.Errorf("rule %q has invalid severity %q", m.ID, m.Severity)
	}
	return nil
}

// AppliesTo reports whether the rule applies to a project with the given
// framework set. Rules without a framework restriction apply universally.
func (m RuleMeta) AppliesTo(frameworks []string) bool {
	if len(m.Frameworks) == 0 {
		return true
	}
	for _, want := range m.Frameworks {
		for _, have := range frameworks {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Rule is the contract every check implements: immutable metadata plus a
// Check operation that inspects one file's context and reports violations.
// Check receives a context so cooperative implementations can honor
// deadlines, but the engine itself never cancels an in-flight check.
type Rule interface {
	// Meta returns the rule's identity and classification.
	Meta() RuleMeta
	// Check evaluates the rule against a single file and returns zero or
	// more violations. A returned error (or panic) is contained by the
	// engine and contributes no violations.
	Check(ctx context.Context, rc *RuleContext) ([]Violation, error)
}

// SeverityAdjuster is an optional hook a rule may implement to override the
// severity of individual violations based on what was found. When present,
// the engine replaces every violation's severity with the hook's return
// value before normalization.
type SeverityAdjuster interface {
	AdjustSeverity(rc *RuleContext, v Violation) Severity
}

// RuleContext carries everything a rule may inspect for one file. Instances
// are built once per eligible file and shared read-only across every rule
// evaluated against that file.
type RuleContext struct {
	FilePath string // Path of the file under evaluation, relative to the audit root.
	Content  string // Full file content.

	// Profile is the detected project profile, used for framework-aware
	// checks.
	Profile ProjectProfile

	// RepoFiles lists every file path in the snapshot so cross-file rules
	// (e.g. missing-test detection) can correlate without re-scanning.
	RepoFiles []string

	// Parsed optionally holds a pre-parsed representation supplied by the
	// caller. The engine never populates or inspects it.
	Parsed any
}

// -- Custom Rule Definitions --

// CustomRuleDef is a declarative rule sourced from configuration or a YAML
// rule pack. Definitions are compiled into Rule implementations at load time;
// invalid definitions are rejected with field-naming errors before they reach
// the registry.
type CustomRuleDef struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id"`
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Category    string   `json:"category" yaml:"category" mapstructure:"category"`
	Severity    string   `json:"severity" yaml:"severity" mapstructure:"severity"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Pattern     string   `json:"pattern" yaml:"pattern" mapstructure:"pattern"`                                 // Regular expression matched line by line.
	FileGlobs   []string `json:"file_globs,omitempty" yaml:"file_globs,omitempty" mapstructure:"file_globs"`    // Basename globs limiting which files are checked.
	Suggestion  string   `json:"suggestion" yaml:"suggestion" mapstructure:"suggestion"`                        // Fix suggestion attached to every violation.
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty" mapstructure:"explanation"` // Rationale attached to every violation.
	Frameworks  []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty" mapstructure:"frameworks"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
}
