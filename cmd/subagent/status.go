package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/subagent/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded execution history",
	Long: `Display the execution history persisted in the project database.

Shows the most recent worker executions, newest first, with their
outcome and duration. Requires 'history.persist: true' in the config;
without persistence there is nothing to show between runs.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of executions to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No execution history. Run 'subagent run <request>' with history.persist enabled.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	results, err := db.Executions(statusLimit)
	if err != nil {
		return fmt.Errorf("read executions: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No execution history recorded yet.")
		return nil
	}

	fmt.Printf("Recent executions (%d):\n", len(results))
	for _, res := range results {
		marker := color.GreenString("ok  ")
		if !res.Success {
			marker = color.RedString("fail")
		}
		fmt.Printf("  %s %-12s %-28s %8s  %s ago\n",
			marker,
			res.Agent,
			res.TaskID,
			res.Duration.Round(time.Millisecond),
			formatDuration(time.Since(res.FinishedAt)))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
