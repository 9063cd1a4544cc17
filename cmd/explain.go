// File: cmd/explain.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/assist"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/history"
	"github.com/codewarden/warden-cli/internal/observability"
)

// newExplainCmd creates and configures the `explain` command, which asks the
// remediation advisor to walk through an audit's findings.
func newExplainCmd(opts *rootOptions) *cobra.Command {
	var (
		runID    string
		rulePack string
	)

	explainCmd := &cobra.Command{
		Use:   "explain [path]",
		Short: "Explains audit findings with model-generated remediation advice",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg := opts.loadConfig(root, config.Layer{})
			logger := observability.GetLogger()

			var result *schemas.AuditResult
			if runID != "" {
				path, err := historyPath(cfg)
				if err != nil {
					return err
				}
				hist, err := history.Open(path, logger)
				if err != nil {
					return err
				}
				defer hist.Close()
				result, err = hist.GetRun(ctx, runID)
				if err != nil {
					return err
				}
			} else {
				pipe, err := newPipeline(cfg, rulePack, logger)
				if err != nil {
					return err
				}
				result, _, err = pipe.run(ctx, root)
				if err != nil {
					return err
				}
			}

			gen, err := assist.NewGemini(ctx, cfg.Assist, logger)
			if err != nil {
				return err
			}
			advisor, err := assist.New(gen, logger)
			if err != nil {
				return err
			}
			defer advisor.Close()

			advice, err := advisor.Explain(ctx, result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), advice)
			return nil
		},
	}

	explainCmd.Flags().StringVar(&runID, "run-id", "", "Explain a stored run instead of auditing now")
	explainCmd.Flags().StringVar(&rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")

	return explainCmd
}
