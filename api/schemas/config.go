package schemas

// -- Engine Configuration --

// DefaultMaxConcurrency bounds parallel file evaluation when the
// configuration does not specify its own limit.
const DefaultMaxConcurrency = 10

// EngineConfig is the merged, immutable configuration for one engine run.
// It is built once per invocation, either by the config loader's layer merge
// or directly from CLI flags, and is never mutated mid-run.
type EngineConfig struct {
	// MinSeverity drops violations ranked below it after aggregation.
	// Empty disables the threshold.
	MinSeverity Severity `json:"min_severity,omitempty" yaml:"min_severity,omitempty" mapstructure:"min_severity"`

	// FailOnSeverity makes ShouldFail report true when any violation is
	// ranked at or above it. Empty disables failure signalling.
	FailOnSeverity Severity `json:"fail_on_severity,omitempty" yaml:"fail_on_severity,omitempty" mapstructure:"fail_on_severity"`

	// DisabledRules lists rule ids excluded from the run. Replaced wholesale
	// by the highest configuration layer that defines it, never unioned.
	DisabledRules []string `json:"disabled_rules,omitempty" yaml:"disabled_rules,omitempty" mapstructure:"disabled_rules"`

	// CustomRules holds declarative rule definitions compiled and registered
	// before the run. Replaced wholesale across layers, like DisabledRules.
	CustomRules []CustomRuleDef `json:"custom_rules,omitempty" yaml:"custom_rules,omitempty" mapstructure:"custom_rules"`

	// Parallel distributes file evaluation across the worker pool instead of
	// evaluating sequentially. Both modes produce identical results.
	Parallel bool `json:"parallel" yaml:"parallel" mapstructure:"parallel"`

	// MaxFiles caps evaluation to the first N eligible files in scan order.
	// Zero means unlimited.
	MaxFiles int `json:"max_files,omitempty" yaml:"max_files,omitempty" mapstructure:"max_files"`

	// MaxConcurrency bounds in-flight file evaluations when Parallel is set.
	// Zero falls back to DefaultMaxConcurrency.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty" mapstructure:"max_concurrency"`

	// Categories restricts reported violations to the listed categories.
	// Empty disables the filter.
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`

	// Deep enables the content sniff stage of file filtering, reading the
	// head of each candidate file to exclude binaries without a known
	// extension.
	Deep bool `json:"deep" yaml:"deep" mapstructure:"deep"`
}

// Concurrency returns the effective worker bound for a parallel run.
func (c EngineConfig) Concurrency() int {
	if c.MaxConcurrency > 0 {
		return c.MaxConcurrency
	}
	return DefaultMaxConcurrency
}

// IsDisabled reports whether the rule id is in the disabled list.
func (c EngineConfig) IsDisabled(ruleID string) bool {
	for _, id := range c.DisabledRules {
		if id == ruleID {
			return true
		}
	}
	return false
}
