// File: cmd/rules.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/observability"
)

// newRulesCmd creates and configures the `rules` command.
func newRulesCmd(opts *rootOptions) *cobra.Command {
	var (
		format   string
		rulePack string
	)

	rulesCmd := &cobra.Command{
		Use:   "rules [path]",
		Short: "Lists the registered rules and their enablement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			statuses := pipe.reg.AllWithStatus(cfg.Engine.DisabledRules)

			switch format {
			case "json":
				json := jsoniter.ConfigCompatibleWithStandardLibrary
				payload, err := json.MarshalIndent(statuses, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding rule list: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			case "text":
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSEVERITY\tSTATUS")
				for _, s := range statuses {
					status := "enabled"
					if s.Disabled {
						status = "disabled"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						s.Meta.ID, s.Meta.Name, s.Meta.Category, s.Meta.Severity, status)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d rule(s) registered.\n", len(statuses))
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			return nil
		},
	}

	rulesCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text or json)")
	rulesCmd.Flags().StringVar(&rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")

	return rulesCmd
}
