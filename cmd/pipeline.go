// File: cmd/pipeline.go
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/customrules"
	"github.com/codewarden/warden-cli/internal/detector"
	"github.com/codewarden/warden-cli/internal/engine"
	"github.com/codewarden/warden-cli/internal/history"
	"github.com/codewarden/warden-cli/internal/registry"
	"github.com/codewarden/warden-cli/internal/rules"
	"github.com/codewarden/warden-cli/internal/scanner"
)

// pipeline wires the registry, engine, scanner, and detector for one
// configuration. Commands that audit repeatedly (watch, serve) build it once
// and run it per request.
type pipeline struct {
	cfg    *config.Config
	reg    *registry.Registry
	eng    *engine.Engine
	logger *zap.Logger
}

// newPipeline registers the builtin catalog, then the configuration's custom
// rules, then an optional rule-pack file, and hands everything to the engine.
func newPipeline(cfg *config.Config, rulePack string, logger *zap.Logger) (*pipeline, error) {
	reg := registry.New(logger)
	if err := reg.RegisterMany(rules.Builtin()...); err != nil {
		return nil, fmt.Errorf("registering builtin rules: %w", err)
	}

	if len(cfg.Engine.CustomRules) > 0 {
		custom, err := customrules.CompileAll(cfg.Engine.CustomRules)
		if err != nil {
			return nil, fmt.Errorf("compiling configured custom rules: %w", err)
		}
		if err := reg.RegisterMany(custom...); err != nil {
			return nil, fmt.Errorf("registering configured custom rules: %w", err)
		}
	}

	if rulePack != "" {
		packRules, err := customrules.LoadPack(rulePack)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterMany(packRules...); err != nil {
			return nil, fmt.Errorf("registering rule pack %s: %w", rulePack, err)
		}
	}

	eng, err := engine.New(reg, logger)
	if err != nil {
		return nil, err
	}

	return &pipeline{cfg: cfg, reg: reg, eng: eng, logger: logger}, nil
}

// run scans the tree, profiles the project, and executes the engine. The
// returned bool is the failure decision for the exit code.
func (p *pipeline) run(ctx context.Context, root string) (*schemas.AuditResult, bool, error) {
	snapshot, err := scanner.New(p.logger).Scan(root)
	if err != nil {
		return nil, false, fmt.Errorf("scanning %s: %w", root, err)
	}

	profile := detector.New(p.logger).Detect(snapshot)
	p.logger.Info("Project profiled.",
		zap.String("type", profile.Type),
		zap.Strings("frameworks", profile.Frameworks),
		zap.Int("files", snapshot.Files))

	result := p.eng.Execute(ctx, p.cfg.Engine, snapshot, profile)
	return result, engine.ShouldFail(p.cfg.Engine, result), nil
}

// historyPath resolves the local history database location for the merged
// configuration.
func historyPath(cfg *config.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	globalPath, err := config.GlobalConfigPath()
	if err != nil {
		return "", fmt.Errorf("resolving history path: %w", err)
	}
	return history.DefaultPath(filepath.Dir(globalPath)), nil
}

// resolveRoot turns the optional positional argument into an absolute audit
// root, defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving audit root: %w", err)
	}
	return abs, nil
}
