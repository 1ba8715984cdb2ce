// Package logs locates Claude Code JSONL conversation logs and aggregates
// the token usage recorded in them.
package logs

import (
	"os"
	"path/filepath"
	"sort"
)

type fileInfo struct {
	path  string
	mtime int64
}

// Discover walks each root recursively and returns every .jsonl file,
// most recently modified first. Missing roots and unreadable directories
// are skipped silently.
func Discover(roots []string) []string {
	var files []fileInfo
	for _, root := range roots {
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // skip unreadable dirs
			}
			if info.IsDir() {
				return nil
			}
			if filepath.Ext(path) != ".jsonl" {
				return nil
			}
			files = append(files, fileInfo{path: path, mtime: info.ModTime().UnixNano()})
			return nil
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime > files[j].mtime
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}
