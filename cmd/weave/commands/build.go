package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/core/domain"
)

var buildShort = map[domain.Command]string{
	domain.CommandBuild:      "Build the project for production",
	domain.CommandDevBuild:   "Build the project for development",
	domain.CommandWatchBuild: "Run a single development build as the watch loop does",
}

func (c *CLI) newBuildCmd(command domain.Command) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: buildShort[command],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Build(cmd.Context(), command, runOptions(cmd))
		},
	}
}
