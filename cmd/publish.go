// File: cmd/publish.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/engine"
	"github.com/codewarden/warden-cli/internal/history"
	"github.com/codewarden/warden-cli/internal/observability"
	"github.com/codewarden/warden-cli/internal/publish"
	"github.com/codewarden/warden-cli/internal/scanner"
)

// newPublishCmd creates and configures the `publish` command, which posts an
// audit to GitHub as a check run.
func newPublishCmd(opts *rootOptions) *cobra.Command {
	var (
		owner    string
		repo     string
		token    string
		sha      string
		runID    string
		rulePack string
	)

	publishCmd := &cobra.Command{
		Use:   "publish [path]",
		Short: "Publishes an audit to GitHub as a check run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg := opts.loadConfig(root, config.Layer{})
			logger := observability.GetLogger()

			if owner == "" {
				owner = cfg.GitHub.Owner
			}
			if repo == "" {
				repo = cfg.GitHub.Repo
			}
			if token == "" {
				token = cfg.GitHub.Token
			}
			if token == "" {
				token = os.Getenv("WARDEN_GITHUB_TOKEN")
			}

			// The head SHA falls back to whatever the audited working tree
			// points at.
			if sha == "" {
				sha = scanner.BuildManifest(root, logger).Commit
			}
			if sha == "" {
				return fmt.Errorf("no commit to publish against: pass --sha or audit a git repository")
			}

			var (
				result     *schemas.AuditResult
				shouldFail bool
			)
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
				shouldFail = engine.ShouldFail(cfg.Engine, result)
			} else {
				pipe, err := newPipeline(cfg, rulePack, logger)
				if err != nil {
					return err
				}
				result, shouldFail, err = pipe.run(ctx, root)
				if err != nil {
					return err
				}
			}

			publisher, err := publish.NewFromToken(token, owner, repo, logger)
			if err != nil {
				return err
			}
			if err := publisher.Publish(ctx, result, sha, shouldFail); err != nil {
				return err
			}

			logger.Info("Audit published",
				zap.String("run_id", result.RunID),
				zap.String("repo", owner+"/"+repo),
				zap.String("sha", sha))
			fmt.Fprintf(cmd.OutOrStdout(), "Published run %s to %s/%s@%s\n", result.RunID, owner, repo, sha)

			if shouldFail {
				return errAuditFailed
			}
			return nil
		},
	}

	publishCmd.Flags().StringVar(&owner, "owner", "", "GitHub repository owner (overrides config)")
	publishCmd.Flags().StringVar(&repo, "repo", "", "GitHub repository name (overrides config)")
	publishCmd.Flags().StringVar(&token, "token", "", "GitHub token (overrides config and WARDEN_GITHUB_TOKEN)")
	publishCmd.Flags().StringVar(&sha, "sha", "", "Commit SHA the check run attaches to (default is the tree's HEAD)")
	publishCmd.Flags().StringVar(&runID, "run-id", "", "Publish a stored run instead of auditing now")
	publishCmd.Flags().StringVar(&rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")

	return publishCmd
}
