package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devmetrics/devmetrics-hook/internal/config"
	"github.com/devmetrics/devmetrics-hook/internal/journal"
	"github.com/devmetrics/devmetrics-hook/internal/tui"
)

func statsCmd() *cobra.Command {
	var (
		limit       int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journaled telemetry events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			jdb, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer jdb.Close()

			entries, err := jdb.Recent(limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			if interactive {
				return tui.Run(entries)
			}

			counts, err := jdb.Counts()
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			fmt.Println("=== Totals ===")
			if len(counts) == 0 {
				fmt.Println("  (no events journaled yet)")
			}
			for _, c := range counts {
				fmt.Printf("  %-14s %-8s %d\n", c.Event, c.Outcome, c.N)
			}

			fmt.Printf("\n=== Recent (%d) ===\n", len(entries))
			for _, e := range entries {
				ts := ""
				if !e.Time.IsZero() {
					ts = e.Time.Local().Format("2006-01-02 15:04")
				}
				ident := e.SessionID
				if e.Project != "" {
					ident += " / " + e.Project
				}
				fmt.Printf("  %s  %-14s %-8s %s\n", ts, e.Event, e.Outcome, ident)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of recent events to show")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse the journal in a TUI")

	return cmd
}
