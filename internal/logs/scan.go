package logs

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// MaxScanFiles bounds how many of the most recent log files a single
// aggregation will read. Sessions whose entries fall entirely outside this
// window underreport usage.
const MaxScanFiles = 5

// Totals holds token usage aggregated from log entries.
type Totals struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	Model               string
	EntriesProcessed    int
	LatestTimestamp     string
}

func (t Totals) HasUsage() bool {
	return t.InputTokens > 0 || t.OutputTokens > 0
}

// Log entry shape: {"timestamp": "...", "message": {"model": "...", "usage": {...}}}
type logEntry struct {
	Timestamp string      `json:"timestamp"`
	Message   *logMessage `json:"message"`
}

type logMessage struct {
	Model string    `json:"model"`
	Usage *logUsage `json:"usage"`
}

type logUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// ScanFile reads a JSONL file line by line and aggregates usage from
// entries newer than after. A zero after disables filtering. Blank and
// malformed lines are skipped; entries whose timestamp cannot be parsed
// are included. Any file-level error yields whatever was collected so far.
func ScanFile(path string, after time.Time) Totals {
	var totals Totals

	f, err := os.Open(path)
	if err != nil {
		return totals
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry logEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}

		if entry.Timestamp != "" && !after.IsZero() {
			if ts := parseTimestamp(entry.Timestamp); !ts.IsZero() && !ts.After(after) {
				continue
			}
		}

		if entry.Message == nil || entry.Message.Usage == nil {
			continue
		}
		usage := entry.Message.Usage

		totals.InputTokens += usage.InputTokens
		totals.OutputTokens += usage.OutputTokens
		totals.CacheCreationTokens += usage.CacheCreationInputTokens
		totals.CacheReadTokens += usage.CacheReadInputTokens
		totals.EntriesProcessed++

		if entry.Message.Model != "" {
			totals.Model = entry.Message.Model
		}
		if entry.Timestamp != "" {
			totals.LatestTimestamp = entry.Timestamp
		}
	}

	return totals
}

// AggregateSession sums usage across the most recent log files under the
// given roots, filtered to entries after start. A zero start includes
// every entry in the capped file window.
func AggregateSession(roots []string, start time.Time) Totals {
	var aggregated Totals

	files := Discover(roots)
	if len(files) > MaxScanFiles {
		files = files[:MaxScanFiles]
	}

	for _, path := range files {
		t := ScanFile(path, start)
		aggregated.InputTokens += t.InputTokens
		aggregated.OutputTokens += t.OutputTokens
		aggregated.CacheCreationTokens += t.CacheCreationTokens
		aggregated.CacheReadTokens += t.CacheReadTokens
		aggregated.EntriesProcessed += t.EntriesProcessed
		if t.Model != "" {
			aggregated.Model = t.Model
		}
	}

	return aggregated
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
