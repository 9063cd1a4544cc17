// File: cmd/report.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/history"
	"github.com/codewarden/warden-cli/internal/observability"
	"github.com/codewarden/warden-cli/internal/report"
)

// newReportCmd creates and configures the `report` command, which re-renders
// runs recorded in the local history database.
func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		runID  string
		last   bool
		list   bool
		limit  int
		format string
		output string
	)

	reportCmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Renders a previously recorded audit run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg := opts.loadConfig(root, config.Layer{})
			logger := observability.GetLogger()

			path, err := historyPath(cfg)
			if err != nil {
				return err
			}
			hist, err := history.Open(path, logger)
			if err != nil {
				return err
			}
			defer hist.Close()

			if list {
				if limit <= 0 {
					limit = cfg.History.Keep
				}
				records, err := hist.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "RUN ID\tSTARTED\tROOT\tVIOLATIONS\tFILES")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
						r.RunID, r.Started.Format("2006-01-02 15:04:05"), r.Root, r.Total, r.FilesScanned)
				}
				return w.Flush()
			}

			switch {
			case runID != "":
				run, err := hist.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				return renderRun(format, output, run)
			case last:
				run, err := hist.LastRun(ctx, root)
				if err != nil {
					return err
				}
				return renderRun(format, output, run)
			default:
				return fmt.Errorf("nothing to render: pass --run-id, --last, or --list")
			}
		},
	}

	reportCmd.Flags().StringVar(&runID, "run-id", "", "Identifier of the run to render")
	reportCmd.Flags().BoolVar(&last, "last", false, "Render the most recent run for the audit root")
	reportCmd.Flags().BoolVar(&list, "list", false, "List recent runs instead of rendering one")
	reportCmd.Flags().IntVar(&limit, "limit", 0, "Cap for --list (0 uses the configured default)")
	reportCmd.Flags().StringVarP(&format, "format", "f", "text", "Report format (text, json, sarif, checkstyle)")
	reportCmd.Flags().StringVarP(&output, "output", "o", "", "Report file path (default is stdout)")

	return reportCmd
}

func renderRun(format, output string, run *schemas.AuditResult) error {
	reporter, err := report.New(format, output, Version)
	if err != nil {
		return err
	}
	if err := reporter.Write(run); err != nil {
		reporter.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return reporter.Close()
}
