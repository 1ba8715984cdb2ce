package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/devmetrics/devmetrics-hook/internal/config"
	"github.com/devmetrics/devmetrics-hook/internal/journal"
	"github.com/devmetrics/devmetrics-hook/internal/logs"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render
	styleBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, log roots, state file, and journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgErr := config.Load()

			fmt.Println("=== Config ===")
			if _, err := os.Stat(cfg.FilePath); err == nil {
				if cfgErr != nil {
					fmt.Printf("  File: %s %s (%v)\n", cfg.FilePath, styleBad("BROKEN"), cfgErr)
				} else {
					fmt.Printf("  File: %s %s\n", cfg.FilePath, styleOK("OK"))
				}
			} else {
				fmt.Printf("  File: %s (not present, defaults + env)\n", cfg.FilePath)
			}
			fmt.Printf("  Endpoint: %s\n", cfg.BaseURL)
			if cfg.APIKey != "" {
				fmt.Printf("  API key: %s\n", styleOK("configured"))
			} else {
				fmt.Printf("  API key: %s (events will be skipped)\n", styleWarn("missing"))
			}
			fmt.Printf("  Debug log: %s (enabled=%v)\n", cfg.DebugLogPath, cfg.Debug)

			fmt.Println("\n=== Log Roots ===")
			for _, root := range cfg.LogRoots {
				checkDir(root)
			}
			files := logs.Discover(cfg.LogRoots)
			fmt.Printf("  JSONL files found: %d\n", len(files))

			fmt.Println("\n=== State ===")
			if info, err := os.Stat(cfg.StateFile); err == nil {
				fmt.Printf("  %s %s (%d bytes)\n", cfg.StateFile, styleOK("OK"), info.Size())
			} else {
				fmt.Printf("  %s (not present yet)\n", cfg.StateFile)
			}

			fmt.Println("\n=== Journal ===")
			fmt.Printf("  Path: %s\n", cfg.JournalPath)
			jdb, err := journal.Open(cfg.JournalPath)
			if err != nil {
				fmt.Printf("  Status: %s (%v)\n", styleBad("UNAVAILABLE"), err)
				return nil
			}
			defer jdb.Close()

			n, err := jdb.EventCount()
			if err != nil {
				fmt.Printf("  Status: %s (%v)\n", styleBad("QUERY FAILED"), err)
				return nil
			}
			fmt.Printf("  Events: %d %s\n", n, styleOK("OK"))

			return nil
		},
	}
}

func checkDir(path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s %s\n", path, styleWarn("NOT FOUND"))
	} else if !info.IsDir() {
		fmt.Printf("  %s %s\n", path, styleBad("NOT A DIRECTORY"))
	} else {
		fmt.Printf("  %s %s\n", path, styleOK("OK"))
	}
}
