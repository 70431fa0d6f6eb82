package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/subagent/internal/config"
	"github.com/ShayCichocki/subagent/internal/orchestrator"
	"github.com/ShayCichocki/subagent/internal/provider"
	"github.com/ShayCichocki/subagent/internal/state"
	"github.com/ShayCichocki/subagent/pkg/models"
)

var (
	runProjectType string
	runFiles       []string
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Process a request through the worker pipeline",
	Long: `Create a task for the request, let the planner break it down, and
dispatch the resulting subtasks sequentially in priority order. Each
non-researcher subtask is first enriched with research findings.

Examples:
  subagent run "implement a rate limiter for the API"
  subagent run --project-type go --file server.go "fix memory leak in the service"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runProjectType, "project-type", "", "Project type hint for the workers")
	runCmd.Flags().StringArrayVar(&runFiles, "file", nil, "Currently relevant file (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	workspaceRoot := cfg.Workspace.Root
	if workspaceRoot == "" {
		workspaceRoot, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	var logger *orchestrator.DebugLogger
	if cfg.Logging.Debug {
		logger = orchestrator.NewDebugLoggerForWorkspace(workspaceRoot)
		defer logger.Close()
	}

	gateway := provider.NewGateway(provider.GatewayConfig{
		WorkspaceRoot: workspaceRoot,
		CallTimeout:   cfg.Timeouts.ProviderCall,
	})
	gateway.ConnectAll(cfg.Providers.Servers)

	var store orchestrator.HistoryStore
	if cfg.History.Persist {
		db, err := state.OpenProject(workspaceRoot)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer db.Close()
		store = db
	}

	signals, err := orchestrator.NewSignalWatcher(workspaceRoot)
	if err != nil {
		return fmt.Errorf("start signal watcher: %w", err)
	}

	o := orchestrator.New(orchestrator.Config{
		Gateway:           gateway,
		History:           store,
		HistoryLimit:      cfg.History.Limit,
		ResearchCacheSize: cfg.Research.CacheSize,
		Logger:            logger,
		Signals:           signals,
	})
	defer o.Dispose()

	o.SetContext(buildContext(workspaceRoot))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Processing: %s", request)
	report := o.ProcessUserRequest(ctx, request)
	fmt.Println(report)

	for _, res := range o.ExecutionHistory() {
		if !res.Success {
			color.Yellow("Completed with failures.")
			return nil
		}
	}
	color.Green("Done.")
	return nil
}

// buildContext assembles the shared context from flags and the workspace.
func buildContext(workspaceRoot string) models.Context {
	wctx := models.Context{
		models.ContextKeyWorkspaceInfo: workspaceRoot,
	}
	if runProjectType != "" {
		wctx[models.ContextKeyProjectType] = runProjectType
	}
	if len(runFiles) > 0 {
		wctx[models.ContextKeyCurrentFiles] = runFiles
	}
	return wctx
}
