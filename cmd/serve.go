// File: cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/config"
	"github.com/codewarden/warden-cli/internal/mcptool"
	"github.com/codewarden/warden-cli/internal/observability"
)

// newServeCmd creates and configures the `serve` command, which exposes the
// engine as tool calls over stdin/stdout.
func newServeCmd(opts *rootOptions) *cobra.Command {
	var rulePack string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves audits as tool calls over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// The tool server resolves configuration per request because
			// each call names its own audit root and filters.
			audit := func(ctx context.Context, args mcptool.AuditArgs) (*schemas.AuditResult, bool, error) {
				root, err := filepath.Abs(args.Path)
				if err != nil {
					return nil, false, fmt.Errorf("resolving audit root: %w", err)
				}

				var overrides config.Layer
				if args.MinSeverity != "" {
					sev, err := schemas.ParseSeverity(args.MinSeverity)
					if err != nil {
						return nil, false, err
					}
					overrides.SetMinSeverity(sev)
				}
				if args.FailOnSeverity != "" {
					sev, err := schemas.ParseSeverity(args.FailOnSeverity)
					if err != nil {
						return nil, false, err
					}
					overrides.SetFailOnSeverity(sev)
				}
				if len(args.Categories) > 0 {
					categories := make([]schemas.Category, 0, len(args.Categories))
					for _, raw := range args.Categories {
						c, err := schemas.ParseCategory(raw)
						if err != nil {
							return nil, false, err
						}
						categories = append(categories, c)
					}
					overrides.SetCategories(categories)
				}
				if len(args.DisabledRules) > 0 {
					overrides.SetDisabledRules(args.DisabledRules)
				}

				cfg := opts.loadConfig(root, overrides)
				pipe, err := newPipeline(cfg, rulePack, logger)
				if err != nil {
					return nil, false, err
				}
				return pipe.run(ctx, root)
			}

			// The server needs a registry for list_rules even before the
			// first audit request arrives.
			cfg := opts.loadConfig(".", config.Layer{})
			pipe, err := newPipeline(cfg, rulePack, logger)
			if err != nil {
				return err
			}

			server := mcptool.New(os.Stdin, os.Stdout, pipe.reg, audit, Version, logger)
			return server.Serve(ctx)
		},
	}

	serveCmd.Flags().StringVar(&rulePack, "rule-pack", "", "YAML rule-pack file with additional custom rules")

	return serveCmd
}
