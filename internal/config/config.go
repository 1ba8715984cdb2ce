package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is used when neither the config file nor the environment
// names an ingestion endpoint.
const DefaultBaseURL = "http://localhost:3000"

type Config struct {
	// BaseURL is the DevMetrics ingestion endpoint, without the ingest path.
	BaseURL string `toml:"base_url"`
	// APIKey authenticates outbound events. Empty disables sending entirely.
	APIKey string `toml:"api_key"`
	// Debug enables the append-only debug log.
	Debug bool `toml:"debug"`
	// LogRoots are the directories searched recursively for Claude Code
	// JSONL conversation logs.
	LogRoots []string `toml:"log_roots"`

	StateFile    string `toml:"state_file"`
	JournalPath  string `toml:"journal_path"`
	DebugLogPath string `toml:"debug_log_path"`

	// FilePath is the config file that was consulted, for diagnostics.
	FilePath string `toml:"-"`
}

// Load builds the effective configuration: built-in defaults, then
// ~/.config/devmetrics/config.toml if present, then environment overrides
// (DEVMETRICS_URL, DEVMETRICS_API_KEY, DEVMETRICS_DEBUG, CLAUDE_CONFIG_DIR).
//
// The returned Config is always usable. The error reports a broken config
// file so diagnostic commands can surface it; the hook path treats it as
// advisory.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	cfg := defaults(home)
	cfg.FilePath = filepath.Join(home, ".config", "devmetrics", "config.toml")

	var loadErr error
	if _, err := os.Stat(cfg.FilePath); err == nil {
		if _, err := toml.DecodeFile(cfg.FilePath, cfg); err != nil {
			loadErr = fmt.Errorf("parse config %s: %w", cfg.FilePath, err)
		}
	}

	applyEnv(cfg, home)

	for i, root := range cfg.LogRoots {
		cfg.LogRoots[i] = expandHome(root, home)
	}
	cfg.StateFile = expandHome(cfg.StateFile, home)
	cfg.JournalPath = expandHome(cfg.JournalPath, home)
	cfg.DebugLogPath = expandHome(cfg.DebugLogPath, home)

	return cfg, loadErr
}

func defaults(home string) *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		LogRoots: []string{
			filepath.Join(home, ".config", "claude", "projects"),
			filepath.Join(home, ".claude", "projects"),
		},
		StateFile:    filepath.Join(home, ".claude", "devmetrics_state.json"),
		JournalPath:  filepath.Join(home, ".config", "devmetrics", "journal.db"),
		DebugLogPath: filepath.Join(home, ".claude", "devmetrics_debug.log"),
	}
}

func applyEnv(cfg *Config, home string) {
	if v := os.Getenv("DEVMETRICS_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DEVMETRICS_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("DEVMETRICS_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	// CLAUDE_CONFIG_DIR holds one or more comma-separated Claude config
	// directories; each contributes a <dir>/projects log root ahead of the
	// configured ones.
	if v := os.Getenv("CLAUDE_CONFIG_DIR"); v != "" {
		var roots []string
		for _, dir := range strings.Split(v, ",") {
			dir = strings.TrimSpace(dir)
			if dir == "" {
				continue
			}
			roots = append(roots, filepath.Join(expandHome(dir, home), "projects"))
		}
		cfg.LogRoots = append(roots, cfg.LogRoots...)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
