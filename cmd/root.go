// Package cmd wires each bot process into a subcommand of the oyasumi
// binary.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "oyasumi",
	Short:         "a small herd of Discord bots",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the selected bot until the process is interrupted.
func Execute() error {
	return rootCmd.Execute()
}
