package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "olexi",
	Short: "Olexi - legal research from your terminal",
	Long: `Olexi answers legal research questions against the Olexi research host.
It searches the case law database, streams back a preview of the top
results, and follows up with a summarised answer.

Running olexi with no arguments starts an interactive session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand means ask mode.
		return runAsk(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
