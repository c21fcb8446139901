// Package cmd implements the metricsd command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the metricsd root command. Run without a subcommand it
// behaves like serve.
func NewRootCmd() *cobra.Command {
	opts := defaultOptions()

	root := &cobra.Command{
		Use:           "metricsd",
		Short:         "Serve process metrics in the Prometheus text format",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &opts)
		},
	}
	bindServeFlags(root.Flags(), &opts)

	root.AddCommand(CreateServeCmd())
	root.AddCommand(CreateRenderCmd())
	root.AddCommand(CreateVersionCmd())
	return root
}
