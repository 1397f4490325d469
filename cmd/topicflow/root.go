package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drblury/topicflow/internal/runtime/registry"
	"github.com/drblury/topicflow/internal/runtime/schema"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	schemaFile string
	configFile string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "topicflow",
		Short: "Inspect and exercise topicflow shape descriptions",
		Long: `topicflow works with YAML shape descriptions.

A shape binds fields to the layers of a topic pattern and, optionally, to the
message payload.

Examples:
  topicflow validate -s shapes.yaml
  topicflow filters -s shapes.yaml
  topicflow encode -s shapes.yaml Reading site=lab id=3 value=21.5
  topicflow decode -s shapes.yaml sensors/lab/3 21.5
  topicflow publish -s shapes.yaml -c service.yaml Reading site=lab id=3 value=21.5`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.schemaFile, "schema", "s", "shapes.yaml", "shape description file")
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "service config file")

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newFiltersCmd(opts),
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newPublishCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) loadShapes() (*registry.Registry[*schema.Message], error) {
	return registry.LoadMessages(o.schemaFile)
}
