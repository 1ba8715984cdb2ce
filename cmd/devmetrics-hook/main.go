package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/devmetrics/devmetrics-hook/internal/config"
	"github.com/devmetrics/devmetrics-hook/internal/debuglog"
	"github.com/devmetrics/devmetrics-hook/internal/hook"
	"github.com/devmetrics/devmetrics-hook/internal/ingest"
	"github.com/devmetrics/devmetrics-hook/internal/journal"
	"github.com/devmetrics/devmetrics-hook/internal/state"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "devmetrics-hook",
		Short: "DevMetrics telemetry hook for Claude Code",
		Long: `devmetrics-hook receives Claude Code hook events (SessionStart, Stop,
PostToolUse) on stdin and forwards usage metrics to a DevMetrics dashboard.

Invoked without a subcommand it acts as the hook itself and always exits 0,
so telemetry can never block Claude Code.`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE:    runHook,
	}

	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(installCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runHook is the hook entry point. It never returns an error: the contract
// with Claude Code is that telemetry failures must not block the host.
func runHook(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := config.Load()
	logger := debuglog.New(cfg.Debug, cfg.DebugLogPath)
	if cfgErr != nil {
		logger.Warn("config file ignored", "error", cfgErr)
	}

	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		logger.Error("failed to read stdin", "error", err)
		return nil
	}

	store := state.NewStore(cfg.StateFile, logger)
	client := ingest.New(cfg.BaseURL, cfg.APIKey, logger)

	jdb, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Debug("journal unavailable", "error", err)
		jdb = nil
	} else {
		defer jdb.Close()
	}

	d := hook.NewDispatcher(cfg, store, client, jdb, logger)
	d.Dispatch(context.Background(), raw)
	return nil
}
