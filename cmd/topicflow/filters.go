package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFiltersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the subscription filters of a shape description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadShapes()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), reg.FilterTree().String())
			return nil
		},
	}
}
