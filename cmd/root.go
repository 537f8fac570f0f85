package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "signal-alert-engine",
	Short: "Crypto trading signal aggregation and price alerting",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runJobCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
