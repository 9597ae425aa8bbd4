// Package commands implements the CLI commands for the weave build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/build"
	"go.trai.ch/weave/internal/core/domain"
)

// CLI represents the command line interface for weave.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, cmd domain.Command, opts app.RunOptions) error
	Watch(ctx context.Context, opts app.RunOptions, serve bool) error
	Serve(ctx context.Context, opts app.RunOptions) error
	Plan(ctx context.Context, cmd domain.Command, opts app.RunOptions, w io.Writer) error
	Clean(ctx context.Context, opts app.RunOptions, all bool, targets []string) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "weave",
		Short:         "A build orchestrator for front-end projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", domain.ConfigFileName, "Configuration file, searched upward from the working directory")
	flags.String("mode", "", "Override the packaging mode: lazy or bundle")
	flags.StringP("output-mode", "o", "auto", "Output mode: auto, tui, or linear")
	flags.Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	for _, cmd := range []domain.Command{domain.CommandBuild, domain.CommandDevBuild, domain.CommandWatchBuild} {
		rootCmd.AddCommand(c.newBuildCmd(cmd))
	}
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// runOptions reads the persistent flags.
func runOptions(cmd *cobra.Command) app.RunOptions {
	config, _ := cmd.Flags().GetString("config")
	mode, _ := cmd.Flags().GetString("mode")
	outputMode, _ := cmd.Flags().GetString("output-mode")
	ci, _ := cmd.Flags().GetBool("ci")

	// If --ci is set, override output-mode to "linear"
	if ci {
		outputMode = "linear"
	}

	return app.RunOptions{
		ConfigPath: config,
		Mode:       mode,
		OutputMode: outputMode,
		CI:         ci,
	}
}
