package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opshub",
	Short: "Real-time messaging and operational-health hub",
	Long: `opshub keeps staff connected over websockets, routes direct and broadcast
messages, tracks presence, and pushes host health alerts to operators.

Available commands:
  serve      Run the hub
  status     Query a running hub
  version    Print the version

Use "opshub [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
