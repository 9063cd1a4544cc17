// File: cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/observability"
	"github.com/codewarden/warden-cli/internal/report"
	"github.com/codewarden/warden-cli/internal/watch"
)

// newWatchCmd creates and configures the `watch` command, which re-audits
// the tree whenever it changes.
func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		feed     string
		rulePack string
		format   string
	)

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Continuously audits a source tree as it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg := opts.loadConfig(root, config.Layer{})
			logger := observability.GetLogger()

			pipe, err := newPipeline(cfg, rulePack, logger)
			if err != nil {
				return err
			}

			// previousTotal tracks the last run's violation count for the
			// delta line. Guarded because feed and watcher runs can overlap
			// in tests.
			var (
				mu            sync.Mutex
				previousTotal = -1
			)
			run := func(runCtx context.Context) error {
				result, shouldFail, err := pipe.run(runCtx, root)
				if err != nil {
					logger.Error("Audit failed, keeping watch", zap.Error(err))
					return nil
				}

				reporter, err := report.ForWriter(format, nopCloser{cmd.OutOrStdout()}, Version)
				if err != nil {
					return err
				}
				if err := reporter.Write(result); err != nil {
					return err
				}
				if err := reporter.Close(); err != nil {
					return err
				}

				mu.Lock()
				delta := ""
				if previousTotal >= 0 {
					diff := result.Summary.Total - previousTotal
					switch {
					case diff > 0:
						delta = fmt.Sprintf(" (+%d since last run)", diff)
					case diff < 0:
						delta = fmt.Sprintf(" (%d since last run)", diff)
					default:
						delta = " (no change)"
					}
				}
				previousTotal = result.Summary.Total
				mu.Unlock()

				status := "ok"
				if shouldFail {
					status = "failing"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n[watch] %d violation(s), %s%s\n",
					result.Summary.Total, status, delta)
				return nil
			}

			// An immediate run gives the delta a baseline.
			if err := run(ctx); err != nil {
				return err
			}

			if feed != "" {
				debounce := watch.NewDebouncer(cfg.Watch.Debounce)
				defer debounce.Stop()
				return watch.FollowFeed(ctx, feed, debounce, run, logger)
			}
			return watch.New(root, cfg.Watch.Debounce, logger).Watch(ctx, run)
		},
	}

	watchCmd.Flags().StringVar(&feed, "feed", "", "JSONL change-feed file to tail instead of watching the filesystem")
	watchCmd.Flags().StringVar(&rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")
	watchCmd.Flags().StringVarP(&format, "format", "f", "text", "Report format per run (text or json)")

	return watchCmd
}

// nopCloser adapts the command output stream to the reporter's WriteCloser.
type nopCloser struct{ w io.Writer }

func (n nopCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopCloser) Close() error                { return nil }
