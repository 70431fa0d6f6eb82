package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "subagent",
	Short: "Multi-agent task orchestrator",
	Long: `Subagent breaks a request down into typed subtasks, dispatches them to
specialized workers (planner, coder, debugger, tester, documenter,
researcher), and enriches each subtask with research findings before it
runs. Tool access is brokered through capability provider processes
spoken to over line-based JSON-RPC.

Run 'subagent run <request>' to process a request, or 'subagent status'
to inspect the recorded execution history.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
