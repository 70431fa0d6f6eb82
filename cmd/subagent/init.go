package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the workspace for subagent",
	Long: `Create the .subagent directory layout and a starter .subagent.yaml
project config in the current directory.

The starter config documents every setting with its default value so it
can be edited in place.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .subagent.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	for _, dir := range []string{
		filepath.Join(cwd, ".subagent"),
		filepath.Join(cwd, ".subagent", "signals"),
		filepath.Join(cwd, ".subagent", "logs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(cwd, ".subagent.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		color.Yellow("%s already exists (use --force to overwrite)", configPath)
		return nil
	}

	starter := map[string]any{
		"workspace": map[string]any{
			"root": "",
		},
		"providers": map[string]any{
			"servers": []map[string]any{
				{
					"name":    "filesystem",
					"command": "npx",
					"args":    []string{"-y", "@modelcontextprotocol/server-filesystem", "."},
				},
			},
		},
		"timeouts": map[string]any{
			"provider_call": "5s",
		},
		"history": map[string]any{
			"limit":   1000,
			"persist": false,
		},
		"research": map[string]any{
			"cache_size": 128,
		},
		"logging": map[string]any{
			"debug": false,
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}

	color.Green("Initialized workspace:")
	fmt.Printf("  %s\n", configPath)
	fmt.Printf("  %s\n", filepath.Join(cwd, ".subagent"))
	return nil
}
