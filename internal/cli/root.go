// Package cli wires the cobra command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd is the base command.
var RootCmd = &cobra.Command{
	Use:     "stampede",
	Short:   "A virtual-user load generator for HTTP APIs",
	Version: version,
	Long: `Stampede drives a target HTTP API with a population of virtual users,
each executing a weighted mix of create and read operations with
realistic pacing, and classifies every response as success or failure
according to per-task rules.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the command tree. Called by main.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func init() {
	RootCmd.AddCommand(runCmd)
}
