// Package cmd implements the shellrun CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shellrun",
	Short: "run shell commands as managed, observable processes",
	Long: `shellrun - run shell commands as managed, observable processes
  - materializes commands into a temp script for the target shell
  - streams stdout/stderr line by line while capturing the result
  - cleans up scripts and processes on every exit path`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
