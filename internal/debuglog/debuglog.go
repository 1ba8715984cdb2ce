// Package debuglog provides the hook's optional debug logger. It appends
// text lines to a fixed log file when debugging is enabled and discards
// everything otherwise. Construction never fails: any problem opening the
// file degrades to a discarding logger.
package debuglog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

func New(enabled bool, path string) *slog.Logger {
	if !enabled {
		return discard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return discard()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return discard()
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
