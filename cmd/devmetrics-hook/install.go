package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devmetrics/devmetrics-hook/internal/hook"
)

func installCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register this binary as a Claude Code hook in ~/.claude/settings.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("home dir: %w", err)
			}
			path := filepath.Join(home, ".claude", "settings.json")

			// Decode into a generic map so unrelated settings survive the
			// round trip untouched.
			settings := map[string]any{}
			if data, err := os.ReadFile(path); err == nil {
				if err := json.Unmarshal(data, &settings); err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("read %s: %w", path, err)
			}

			added := 0
			for _, reg := range []struct {
				event   string
				matcher string
			}{
				{hook.EventSessionStart, ""},
				{hook.EventStop, ""},
				{hook.EventPostToolUse, "Write|Edit"},
			} {
				if registerHook(settings, reg.event, reg.matcher, bin) {
					added++
				}
			}

			out, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}

			if dryRun {
				fmt.Println(string(out))
				return nil
			}

			if added == 0 {
				fmt.Printf("Already installed in %s\n", path)
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Printf("Registered %d hook(s) in %s\n", added, path)
			fmt.Println("Set DEVMETRICS_URL and DEVMETRICS_API_KEY in your shell profile to enable sending.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the merged settings instead of writing them")

	return cmd
}

// registerHook adds one hook registration unless the command is already
// present for that event. It reports whether anything was added.
func registerHook(settings map[string]any, event, matcher, command string) bool {
	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}

	groups, _ := hooks[event].([]any)
	for _, g := range groups {
		gm, ok := g.(map[string]any)
		if !ok {
			continue
		}
		inner, _ := gm["hooks"].([]any)
		for _, h := range inner {
			hm, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if hm["command"] == command {
				return false
			}
		}
	}

	entry := map[string]any{
		"hooks": []any{
			map[string]any{"type": "command", "command": command},
		},
	}
	if matcher != "" {
		entry["matcher"] = matcher
	}
	hooks[event] = append(groups, entry)
	return true
}
