// File: internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/filter"
	"github.com/codewarden/warden-cli/internal/pool"
	"github.com/codewarden/warden-cli/internal/registry"
)

// Engine orchestrates one audit: rule selection, file selection, per-file
// evaluation, severity normalization, post-filtering, and aggregation. It
// holds no per-run state; the same Engine may serve any number of runs.
//
// The registry is injected by reference and is read-only for the duration of
// Execute. The returned result is exclusively the caller's; the engine
// performs no further mutation after returning.
type Engine struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// New creates an engine bound to a rule registry.
func New(reg *registry.Registry, logger *zap.Logger) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: reg,
		logger:   logger.Named("engine"),
	}, nil
}

// fileOutcome is the per-file unit of work. Violations keep the order the
// applicable rules produced them in, so aggregation over files in snapshot
// order yields the same list in serial and parallel mode.
type fileOutcome struct {
	violations []schemas.Violation
	scanned    bool
}

// Execute runs the full audit pipeline against a tree snapshot and project
// profile. It never returns an error: per-rule and per-file failures are
// contained and logged, and configuration problems were settled before the
// config reached the engine.
func (e *Engine) Execute(ctx context.Context, cfg schemas.EngineConfig, snapshot *schemas.TreeSnapshot, profile schemas.ProjectProfile) *schemas.AuditResult {
	rules := e.selectRules(cfg)
	rules = applicableToProject(rules, profile)
	return e.run(ctx, cfg, snapshot, profile, rules)
}

// ExecuteRules runs the same pipeline restricted to an explicit id subset,
// bypassing the framework filter. Unknown ids are diagnosed the same way as
// stale disabled ids.
func (e *Engine) ExecuteRules(ctx context.Context, ids []string, cfg schemas.EngineConfig, snapshot *schemas.TreeSnapshot, profile schemas.ProjectProfile) *schemas.AuditResult {
	var rules []schemas.Rule
	for _, id := range ids {
		rule, ok := e.registry.Get(id)
		if !ok {
			e.logger.Warn("requested rule is not registered", zap.String("rule", id))
			continue
		}
		if !cfg.IsDisabled(id) {
			rules = append(rules, rule)
		}
	}
	return e.run(ctx, cfg, snapshot, profile, rules)
}

// selectRules snapshots the registry and drops disabled ids. A disabled id
// with no matching rule is a stale configuration entry, never a failure.
func (e *Engine) selectRules(cfg schemas.EngineConfig) []schemas.Rule {
	for _, id := range cfg.DisabledRules {
		if !e.registry.Has(id) {
			e.logger.Warn("disabled rule is not registered, ignoring",
				zap.String("rule", id))
		}
	}

	all := e.registry.All()
	rules := make([]schemas.Rule, 0, len(all))
	for _, rule := range all {
		if cfg.IsDisabled(rule.Meta().ID) {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// applicableToProject narrows rules to those whose framework allow-list
// intersects the project's detected frameworks. Unrestricted rules always
// apply.
func applicableToProject(rules []schemas.Rule, profile schemas.ProjectProfile) []schemas.Rule {
	out := make([]schemas.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Meta().AppliesTo(profile.Frameworks) {
			out = append(out, rule)
		}
	}
	return out
}

func (e *Engine) run(ctx context.Context, cfg schemas.EngineConfig, snapshot *schemas.TreeSnapshot, profile schemas.ProjectProfile, rules []schemas.Rule) *schemas.AuditResult {
	started := time.Now()
	result := &schemas.AuditResult{
		RunID:         uuid.New().String(),
		Root:          snapshot.Root,
		Started:       started,
		RulesExecuted: len(rules),
	}

	repoFiles := snapshot.FilePaths()
	eligible := e.eligibleFiles(snapshot, cfg)

	e.logger.Info("starting audit",
		zap.String("run_id", result.RunID),
		zap.String("root", snapshot.Root),
		zap.Int("rules", len(rules)),
		zap.Int("eligible_files", len(eligible)),
		zap.Bool("parallel", cfg.Parallel),
	)

	evaluate := func(ctx context.Context, path string) (fileOutcome, error) {
		return e.evaluateFile(ctx, snapshot.Root, path, repoFiles, profile, rules), nil
	}

	var outcomes []fileOutcome
	if cfg.Parallel {
		results := pool.Map(ctx, eligible, cfg.Concurrency(), evaluate)
		outcomes = make([]fileOutcome, len(results))
		for i, r := range results {
			outcomes[i] = r.Value
		}
	} else {
		outcomes = make([]fileOutcome, len(eligible))
		for i, path := range eligible {
			outcomes[i], _ = evaluate(ctx, path)
		}
	}

	// Aggregation walks outcomes in snapshot order, so the violation list is
	// identical regardless of execution mode.
	var violations []schemas.Violation
	for _, o := range outcomes {
		if o.scanned {
			result.FilesScanned++
		}
		violations = append(violations, o.violations...)
	}

	violations = FilterBySeverity(violations, cfg.MinSeverity)
	violations = FilterByCategory(violations, cfg.Categories)

	result.Violations = violations
	result.Summary = schemas.Summarize(violations)
	result.ExecutionTime = time.Since(started)

	e.logger.Info("audit complete",
		zap.String("run_id", result.RunID),
		zap.Int("violations", result.Summary.Total),
		zap.Int("files_scanned", result.FilesScanned),
		zap.Duration("execution_time", result.ExecutionTime),
	)
	return result
}

// eligibleFiles resolves the snapshot's file entries through the file filter
// and applies the maxFiles cap: the first N survivors in scan order, no
// resampling.
func (e *Engine) eligibleFiles(snapshot *schemas.TreeSnapshot, cfg schemas.EngineConfig) []string {
	f := filter.New(snapshot.Root, e.logger)
	var eligible []string
	for _, path := range snapshot.FilePaths() {
		if f.ShouldExclude(path, cfg.Deep) {
			continue
		}
		eligible = append(eligible, path)
		if cfg.MaxFiles > 0 && len(eligible) == cfg.MaxFiles {
			break
		}
	}
	return eligible
}

// evaluateFile reads one file and runs every rule against it. An unreadable
// file is silently skipped: not counted as scanned, no violation emitted.
func (e *Engine) evaluateFile(ctx context.Context, root, path string, repoFiles []string, profile schemas.ProjectProfile, rules []schemas.Rule) fileOutcome {
	content, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		e.logger.Debug("skipping unreadable file",
			zap.String("file", path), zap.Error(err))
		return fileOutcome{}
	}

	rc := &schemas.RuleContext{
		FilePath:  path,
		Content:   string(content),
		Profile:   profile,
		RepoFiles: repoFiles,
	}

	outcome := fileOutcome{scanned: true}
	for _, rule := range rules {
		outcome.violations = append(outcome.violations, e.runCheck(ctx, rule, rc)...)
	}
	return outcome
}

// runCheck invokes one rule against one file. A returned error or a panic is
// contained here so a single defective rule cannot blank out the rest of the
// run; either way the invocation contributes zero violations.
func (e *Engine) runCheck(ctx context.Context, rule schemas.Rule, rc *schemas.RuleContext) (violations []schemas.Violation) {
	meta := rule.Meta()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule check panicked",
				zap.String("rule", meta.ID),
				zap.String("file", rc.FilePath),
				zap.Any("panic", r))
			violations = nil
		}
	}()

	raw, err := rule.Check(ctx, rc)
	if err != nil {
		e.logger.Error("rule check failed",
			zap.String("rule", meta.ID),
			zap.String("file", rc.FilePath),
			zap.Error(err))
		return nil
	}

	adjuster, _ := rule.(schemas.SeverityAdjuster)
	violations = make([]schemas.Violation, 0, len(raw))
	for _, v := range raw {
		violations = append(violations, normalize(v, meta, rc, adjuster))
	}
	return violations
}

// normalize denormalizes rule identity onto the violation, applies the
// severity-adjustment hook, and recomputes ImmediateAttention. Raw rule
// output is never trusted for the flag.
func normalize(v schemas.Violation, meta schemas.RuleMeta, rc *schemas.RuleContext, adjuster schemas.SeverityAdjuster) schemas.Violation {
	v.RuleID = meta.ID
	v.RuleName = meta.Name
	v.Category = meta.Category
	if v.FilePath == "" {
		v.FilePath = rc.FilePath
	}
	if !v.Severity.Valid() {
		v.Severity = meta.Severity
	}
	if adjuster != nil {
		v.Severity = adjuster.AdjustSeverity(rc, v)
	}
	v.ImmediateAttention = v.Severity == schemas.SeverityCritical
	return v
}

// FilterBySeverity keeps violations ranked at or above the threshold. An
// empty threshold disables the filter.
func FilterBySeverity(violations []schemas.Violation, min schemas.Severity) []schemas.Violation {
	if min == "" {
		return violations
	}
	out := make([]schemas.Violation, 0, len(violations))
	for _, v := range violations {
		if v.Severity.AtLeast(min) {
			out = append(out, v)
		}
	}
	return out
}

// FilterByCategory keeps violations whose category is in the allow-list.
// An empty list disables the filter.
func FilterByCategory(violations []schemas.Violation, categories []schemas.Category) []schemas.Violation {
	if len(categories) == 0 {
		return violations
	}
	allowed := make(map[schemas.Category]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	out := make([]schemas.Violation, 0, len(violations))
	for _, v := range violations {
		if _, ok := allowed[v.Category]; ok {
			out = append(out, v)
		}
	}
	return out
}

// ShouldFail reports whether the run should fail the calling process: true
// iff failOnSeverity is set and at least one violation is ranked at or above
// it. Exit-code mechanics belong to the caller.
func ShouldFail(cfg schemas.EngineConfig, result *schemas.AuditResult) bool {
	if cfg.FailOnSeverity == "" {
		return false
	}
	for _, v := range result.Violations {
		if v.Severity.AtLeast(cfg.FailOnSeverity) {
			return true
		}
	}
	return false
}
