package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drblury/topicflow/internal/runtime/config"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a shape description and, optionally, a service config",
		Long: `Validate the shape description file.

Checks:
  - YAML syntax is valid
  - Every shape builds
  - No two shapes can receive the same topic
  - The service config is valid (when --config is set)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Validating %s...\n\n", opts.schemaFile)

			reg, err := opts.loadShapes()
			if err != nil {
				fmt.Fprintf(out, "  %s Shapes valid\n", crossMark)
				return err
			}
			fmt.Fprintf(out, "  %s Shapes valid\n", checkMark)
			for _, s := range reg.Schemas() {
				fmt.Fprintf(out, "      %s  %s\n", s.Tag(), s.Pattern())
			}

			if opts.configFile != "" {
				cfg, err := config.Load(opts.configFile)
				if err == nil {
					err = config.ValidateConfig(cfg)
				}
				if err != nil {
					fmt.Fprintf(out, "  %s Config valid\n", crossMark)
					return err
				}
				fmt.Fprintf(out, "  %s Config valid (%s)\n", checkMark, cfg.GetPubSubSystem())
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Description is valid.")
			return nil
		},
	}
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
