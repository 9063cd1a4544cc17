package schemas

import (
	"fmt"
	"strings"
)

// -- Severity Schemas --

// Severity represents the ranked importance of a rule or violation, from
// CRITICAL (highest) down to SUGGESTION (lowest). The values are uppercase to
// align with configuration files and report output.
type Severity string

// Constants defining the standard severity levels for violations.
const (
	SeverityCritical   Severity = "CRITICAL"   // Must be addressed immediately.
	SeverityHigh       Severity = "HIGH"       // Serious issue, fix before merging.
	SeverityMedium     Severity = "MEDIUM"     // Should be fixed in the near term.
	SeverityLow        Severity = "LOW"        // Minor issue, fix opportunistically.
	SeveritySuggestion Severity = "SUGGESTION" // Optional improvement.
)

// severityRank orders severities for comparison and display. Lower values are
// more severe, so CRITICAL sorts and filters ahead of everything else.
var severityRank = map[Severity]int{
	SeverityCritical:   0,
	SeverityHigh:       1,
	SeverityMedium:     2,
	SeverityLow:        3,
	SeveritySuggestion: 4,
}

// SeverityOrder lists every severity from most to least severe. Report
// renderers iterate this slice so grouped output is always in rank order.
var SeverityOrder = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeveritySuggestion,
}

// Rank returns the numeric rank of the severity; lower is more severe.
// Unknown severities rank below SUGGESTION so they never pass a threshold.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Valid reports whether the severity is a member of the closed set.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether the severity is ranked at or above the threshold.
// A CRITICAL violation is AtLeast(HIGH); a LOW violation is not.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() <= threshold.Rank()
}

// ParseSeverity resolves a string to a Severity, accepting any casing.
// It returns an error naming the offending value for anything outside the
// closed set.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", raw)
	}
	return s, nil
}

// -- Category Schemas --

// Category is the closed classification of a rule's concern area.
type Category string

// Constants defining the rule categories.
const (
	CategorySecurity        Category = "Security"        // Vulnerabilities and unsafe patterns.
	CategoryTesting         Category = "Testing"         // Test presence and quality.
	CategoryArchitecture    Category = "Architecture"    // Structural and layering concerns.
	CategoryPerformance     Category = "Performance"     // Runtime efficiency concerns.
	CategoryStyle           Category = "Style"           // Formatting and readability.
	CategoryMaintainability Category = "Maintainability" // Long-term upkeep concerns.
)

// Categories lists every category in presentation order.
var Categories = []Category{
	CategorySecurity,
	CategoryTesting,
	CategoryArchitecture,
	CategoryPerformance,
	CategoryStyle,
	CategoryMaintainability,
}

var categorySet = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// Valid reports whether the category is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := categorySet[c]
	return ok
}

// ParseCategory resolves a string to a Category, accepting any casing.
func ParseCategory(raw string) (Category, error) {
	want := strings.ToLower(strings.TrimSpace(raw))
	for c := range categorySet {
		if strings.ToLower(string(c)) == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}
