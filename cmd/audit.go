// File: cmd/audit.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/history"
	"github.com/codewarden/warden-cli/internal/observability"
	"github.com/codewarden/warden-cli/internal/report"
	"github.com/codewarden/warden-cli/internal/scanner"
	"github.com/codewarden/warden-cli/internal/store"
)

// errAuditFailed signals violations at or above the failure threshold. It
// maps to a non-zero exit code without the noise of a stack of wrapping.
var errAuditFailed = errors.New("violations at or above the failure threshold")

// auditFlags holds everything `warden audit` accepts on the command line.
type auditFlags struct {
	minSeverity    string
	failOnSeverity string
	disabledRules  []string
	categories     []string
	deep           bool
	parallel       bool
	concurrency    int
	maxFiles       int
	format         string
	output         string
	noHistory      bool
	dbURL          string
	rulePack       string
}

// overrideLayer converts changed flags into the highest-precedence
// configuration layer. Untouched flags stay unset so they never mask file
// configuration.
func (f *auditFlags) overrideLayer(cmd *cobra.Command) (config.Layer, error) {
	var layer config.Layer
	changed := cmd.Flags().Changed

	if changed("min-severity") {
		sev, err := schemas.ParseSeverity(f.minSeverity)
		if err != nil {
			return layer, fmt.Errorf("--min-severity: %w", err)
		}
		layer.SetMinSeverity(sev)
	}
	if changed("fail-on-severity") {
		sev, err := schemas.ParseSeverity(f.failOnSeverity)
		if err != nil {
			return layer, fmt.Errorf("--fail-on-severity: %w", err)
		}
		layer.SetFailOnSeverity(sev)
	}
	if changed("disable-rule") {
		layer.SetDisabledRules(f.disabledRules)
	}
	if changed("category") {
		categories := make([]schemas.Category, 0, len(f.categories))
		for _, raw := range f.categories {
			c, err := schemas.ParseCategory(raw)
			if err != nil {
				return layer, fmt.Errorf("--category: %w", err)
			}
			categories = append(categories, c)
		}
		layer.SetCategories(categories)
	}
	if changed("deep") {
		layer.SetDeep(f.deep)
	}
	if changed("parallel") {
		layer.SetParallel(f.parallel)
	}
	if changed("concurrency") {
		layer.SetMaxConcurrency(f.concurrency)
	}
	if changed("max-files") {
		layer.SetMaxFiles(f.maxFiles)
	}
	return layer, nil
}

// newAuditCmd creates and configures the `audit` command.
func newAuditCmd(opts *rootOptions) *cobra.Command {
	flags := &auditFlags{}

	auditCmd := &cobra.Command{
		Use:   "audit [path]",
		Short: "Audits a source tree and reports rule violations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			overrides, err := flags.overrideLayer(cmd)
			if err != nil {
				return err
			}
			cfg := opts.loadConfig(root, overrides)
			logger := observability.GetLogger()

			pipe, err := newPipeline(cfg, flags.rulePack, logger)
			if err != nil {
				return err
			}

			manifest := scanner.BuildManifest(root, logger)
			logger.Info("Starting audit",
				zap.String("root", root),
				zap.String("commit", manifest.Commit),
				zap.Int("rules", pipe.reg.Len()),
				zap.Bool("parallel", cfg.Engine.Parallel))

			result, shouldFail, err := pipe.run(ctx, root)
			if err != nil {
				return err
			}

			reporter, err := report.New(flags.format, flags.output, Version)
			if err != nil {
				return err
			}
			if err := reporter.Write(result); err != nil {
				reporter.Close()
				return fmt.Errorf("writing report: %w", err)
			}
			if err := reporter.Close(); err != nil {
				return fmt.Errorf("finalizing report: %w", err)
			}

			if err := persistRun(ctx, cfg, flags, result, logger); err != nil {
				// Persistence problems never mask the audit outcome.
				logger.Warn("Failed to persist run", zap.Error(err))
			}

			logger.Info("Audit complete",
				zap.String("run_id", result.RunID),
				zap.Int("violations", result.Summary.Total),
				zap.Duration("took", result.ExecutionTime),
				zap.Bool("should_fail", shouldFail))

			if shouldFail {
				return errAuditFailed
			}
			return nil
		},
	}

	auditCmd.Flags().StringVar(&flags.minSeverity, "min-severity", "", "Drop violations below this severity (CRITICAL..SUGGESTION)")
	auditCmd.Flags().StringVar(&flags.failOnSeverity, "fail-on-severity", "", "Exit non-zero when a violation is at or above this severity")
	auditCmd.Flags().StringSliceVar(&flags.disabledRules, "disable-rule", nil, "Rule id to skip (repeatable)")
	auditCmd.Flags().StringSliceVar(&flags.categories, "category", nil, "Restrict reported violations to these categories (repeatable)")
	auditCmd.Flags().BoolVar(&flags.deep, "deep", false, "Sniff file contents to exclude unrecognized binaries")
	auditCmd.Flags().BoolVar(&flags.parallel, "parallel", false, "Evaluate files across a bounded worker pool")
	auditCmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Worker bound for --parallel (0 uses the default)")
	auditCmd.Flags().IntVar(&flags.maxFiles, "max-files", 0, "Cap evaluation to the first N eligible files (0 is unlimited)")
	auditCmd.Flags().StringVarP(&flags.format, "format", "f", "text", "Report format (text, json, sarif, checkstyle)")
	auditCmd.Flags().StringVarP(&flags.output, "output", "o", "", "Report file path (default is stdout)")
	auditCmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Skip recording this run in the local history database")
	auditCmd.Flags().StringVar(&flags.dbURL, "db-url", "", "PostgreSQL DSN of the shared CI store (overrides config)")
	auditCmd.Flags().StringVar(&flags.rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")

	return auditCmd
}

// persistRun records the result in the local history database and, when a
// database URL is configured, the shared CI store.
func persistRun(ctx context.Context, cfg *config.Config, flags *auditFlags, result *schemas.AuditResult, logger *zap.Logger) error {
	if cfg.History.Enabled && !flags.noHistory {
		path, err := historyPath(cfg)
		if err != nil {
			return err
		}
		hist, err := history.Open(path, logger)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer hist.Close()
		if err := hist.SaveRun(ctx, result); err != nil {
			return fmt.Errorf("saving run to history: %w", err)
		}
		logger.Debug("Run recorded in history", zap.String("run_id", result.RunID))
	}

	dbURL := flags.dbURL
	if dbURL == "" {
		dbURL = cfg.Store.URL
	}
	if dbURL == "" {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, dbURL)
	if err != nil {
		return fmt.Errorf("connecting to violations store: %w", err)
	}
	defer pool.Close()

	st, err := store.New(connectCtx, pool, logger)
	if err != nil {
		return err
	}
	if err := st.PersistRun(ctx, result); err != nil {
		return fmt.Errorf("persisting run to violations store: %w", err)
	}
	logger.Debug("Run recorded in violations store", zap.String("run_id", result.RunID))
	return nil
}
