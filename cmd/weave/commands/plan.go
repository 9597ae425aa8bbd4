package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/core/domain"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "plan [command]",
		Short:     "Print the stages and scripts pipeline of a command",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.CommandBuild), string(domain.CommandDevBuild), string(domain.CommandWatchBuild)},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := string(domain.CommandBuild)
			if len(args) == 1 {
				name = args[0]
			}
			command, err := domain.ParseCommand(name)
			if err != nil {
				return err
			}
			return c.app.Plan(cmd.Context(), command, runOptions(cmd), cmd.OutOrStdout())
		},
	}
}
