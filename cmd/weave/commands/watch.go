package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build for development and rebuild on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serve, _ := cmd.Flags().GetBool("serve")
			return c.app.Watch(cmd.Context(), runOptions(cmd), serve)
		},
	}
	cmd.Flags().BoolP("serve", "s", false, "Serve the output with live reload while watching")
	return cmd
}

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the output with live reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context(), runOptions(cmd))
		},
	}
}
