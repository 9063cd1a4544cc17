// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/observability"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	// cfgFile overrides the project-layer configuration file.
	cfgFile   string
	logLevel  string
	logFormat string
	// Flag defaults must not shadow the file-sourced logging section, so
	// only explicitly set flags are recorded as overrides.
	logLevelSet  bool
	logFormatSet bool
}

// NewRootCommand builds a fresh command tree. A new instance per execution
// keeps flag state from leaking between runs in tests.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "warden",
		Short:   "Warden audits source trees against a configurable rule catalog.",
		Version: Version,
		// RunE surfaces errors; usage spam on a failed audit helps nobody.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logLevelSet = cmd.Flags().Changed("log-level")
			opts.logFormatSet = cmd.Flags().Changed("log-format")
			// Bootstrap logging before configuration is loaded so the config
			// loader itself has somewhere to report layer diagnostics.
			observability.InitializeLogger(observability.LoggerConfig{
				Level:  opts.logLevel,
				Format: opts.logFormat,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "Project config file (default is <root>/.warden.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format (console or json)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newAuditCmd(opts),
		newRulesCmd(opts),
		newReportCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
		newPublishCmd(opts),
		newExplainCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the command tree under a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig merges the configuration layers for one invocation and swaps
// the process logger over to the merged logging settings.
func (o *rootOptions) loadConfig(root string, overrides config.Layer) *config.Config {
	cfg := config.Load(config.LoadOptions{
		Root:        root,
		ProjectPath: o.cfgFile,
		Overrides:   overrides,
		Logger:      observability.GetLogger(),
	})

	logging := cfg.Logging
	// Explicitly set persistent flags beat the file-sourced logging section;
	// flag defaults do not.
	if o.logLevelSet {
		logging.Level = o.logLevel
	}
	if o.logFormatSet {
		logging.Format = o.logFormat
	}
	observability.InitializeLogger(logging)
	return cfg
}
