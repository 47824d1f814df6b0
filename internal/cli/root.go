package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the command tree. Each call returns fresh commands, so
// tests can execute them with their own flags and writers.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fluenthttp",
		Short:   "A terminal HTTP client built on a fluent request chain",
		Version: version,
		Long: `fluenthttp sends HTTP requests from the terminal and replays request
collections. Every request is built through the fluent chain, so bodies
are only accepted for POST, PUT, PATCH and DELETE and caching only for
GET, HEAD and OPTIONS.

Defaults are read from FLUENTHTTP_* environment variables and can be
overridden with flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand is provided, print help
			return cmd.Help()
		},
	}

	addGlobalFlags(rootCmd)

	for _, verb := range []string{"GET", "HEAD", "OPTIONS", "POST", "PUT", "PATCH", "DELETE"} {
		rootCmd.AddCommand(newVerbCmd(verb))
	}
	rootCmd.AddCommand(newRunCmd())

	return rootCmd
}

// Execute runs the command line tool.
func Execute() error {
	return NewRootCmd().Execute()
}
