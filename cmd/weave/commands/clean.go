package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Remove build output",
		Long: "Remove build output. Without targets the scripts, styles and index output is removed.\n" +
			"Targets: scripts, styles, index, vendor, iconfont, html, assets, all.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return c.app.Clean(cmd.Context(), runOptions(cmd), all, args)
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Remove the whole output directory")

	return cmd
}
