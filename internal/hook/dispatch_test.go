package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devmetrics/devmetrics-hook/internal/config"
	"github.com/devmetrics/devmetrics-hook/internal/ingest"
	"github.com/devmetrics/devmetrics-hook/internal/state"
)

type sentEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newCaptureServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]sentEvent) {
	t.Helper()
	var events []sentEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e sentEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		events = append(events, e)
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &events
}

func newTestDispatcher(t *testing.T, baseURL, apiKey string, roots []string) (*Dispatcher, *state.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		LogRoots:  roots,
		StateFile: filepath.Join(t.TempDir(), "state.json"),
	}
	store := state.NewStore(cfg.StateFile, logger)
	client := ingest.New(cfg.BaseURL, cfg.APIKey, logger)
	return NewDispatcher(cfg, store, client, nil, logger), store
}

func dispatch(t *testing.T, d *Dispatcher, input string) {
	t.Helper()
	d.Dispatch(context.Background(), []byte(input))
}

func TestSessionStart_MapsDashboardSession(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{"id":"d1"}`)
	d, store := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo/proj"}`)

	require.Len(t, *events, 1)
	require.Equal(t, "session_start", (*events)[0].Event)

	var payload struct {
		Tool              string `json:"tool"`
		ProjectName       string `json:"projectName"`
		ExternalSessionID string `json:"externalSessionId"`
		Metadata          struct {
			Cwd         string `json:"cwd"`
			HookVersion string `json:"hookVersion"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal((*events)[0].Data, &payload))
	require.Equal(t, "claude_code", payload.Tool)
	require.Equal(t, "proj", payload.ProjectName)
	require.Equal(t, "s1", payload.ExternalSessionID)
	require.Equal(t, "/repo/proj", payload.Metadata.Cwd)
	require.NotEmpty(t, payload.Metadata.HookVersion)

	// The state file uses the fixed on-disk keys.
	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var doc struct {
		Sessions map[string]map[string]any `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "d1", doc.Sessions["s1"]["dashboard_id"])
	require.Equal(t, "proj", doc.Sessions["s1"]["project_name"])
	require.Equal(t, "/repo/proj", doc.Sessions["s1"]["cwd"])
	require.Greater(t, doc.Sessions["s1"]["start_timestamp"].(float64), 0.0)
}

func TestSessionStart_SendFailureStillRecordsSession(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusInternalServerError, `{}`)
	d, store := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo/proj"}`)

	st := store.Load()
	rec, ok := st.Sessions["s1"]
	require.True(t, ok, "record must survive a failed send so stop can clean up")
	require.Empty(t, rec.DashboardID)
	require.Greater(t, rec.StartTimestamp, 0.0)
}

func writeUsageLog(t *testing.T, dir string, lines ...string) {
	t.Helper()
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.jsonl"), []byte(content), 0o644))
}

func usageLine(ts string, input int) string {
	return fmt.Sprintf(`{"timestamp":%q,"message":{"model":"claude-sonnet","usage":{"input_tokens":%d,"output_tokens":3}}}`, ts, input)
}

func TestStop_SendsUsageSinceStart(t *testing.T) {
	logDir := t.TempDir()
	writeUsageLog(t, logDir,
		usageLine("2026-08-01T10:00:00Z", 10),
		usageLine("2026-08-01T11:00:00Z", 5),
	)

	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, store := newTestDispatcher(t, srv.URL, "key", []string{logDir})

	start := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	st := store.Load()
	st.Sessions["s1"] = state.Record{
		DashboardID:    "d1",
		StartTimestamp: float64(start.Unix()),
		ProjectName:    "proj",
	}
	store.Save(st)

	d.now = func() time.Time { return time.Date(2026, 8, 1, 11, 5, 0, 0, time.UTC) }
	dispatch(t, d, `{"hook_event_name":"Stop","session_id":"s1"}`)

	require.Len(t, *events, 1)
	require.Equal(t, "session_end", (*events)[0].Event)

	var payload struct {
		SessionID         string `json:"sessionId"`
		ExternalSessionID string `json:"externalSessionId"`
		DurationMinutes   *int64 `json:"durationMinutes"`
		TotalInputTokens  int64  `json:"totalInputTokens"`
		TotalOutputTokens int64  `json:"totalOutputTokens"`
		Model             string `json:"model"`
	}
	require.NoError(t, json.Unmarshal((*events)[0].Data, &payload))
	require.Equal(t, "d1", payload.SessionID)
	require.Equal(t, "s1", payload.ExternalSessionID)
	require.Equal(t, int64(5), payload.TotalInputTokens, "only the entry after the start time counts")
	require.Equal(t, int64(3), payload.TotalOutputTokens)
	require.NotNil(t, payload.DurationMinutes)
	require.Equal(t, int64(35), *payload.DurationMinutes)
	require.Equal(t, "claude-sonnet", payload.Model)

	_, ok := store.Load().Sessions["s1"]
	require.False(t, ok, "stop must remove the session record")
}

func TestStop_NoUsageSendsBareEnd(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, store := newTestDispatcher(t, srv.URL, "key", []string{t.TempDir()})

	st := store.Load()
	st.Sessions["s1"] = state.Record{DashboardID: "d1"}
	store.Save(st)

	dispatch(t, d, `{"hook_event_name":"Stop","session_id":"s1"}`)

	require.Len(t, *events, 1)
	var fields map[string]any
	require.NoError(t, json.Unmarshal((*events)[0].Data, &fields))
	require.Equal(t, "d1", fields["sessionId"])
	require.Equal(t, "s1", fields["externalSessionId"])
	require.NotContains(t, fields, "totalInputTokens")
	require.NotContains(t, fields, "durationMinutes")
}

func TestStop_RemovesRecordEvenWhenSendFails(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusInternalServerError, `{}`)
	d, store := newTestDispatcher(t, srv.URL, "key", []string{t.TempDir()})

	st := store.Load()
	st.Sessions["s1"] = state.Record{DashboardID: "d1"}
	store.Save(st)

	dispatch(t, d, `{"hook_event_name":"Stop","session_id":"s1"}`)

	_, ok := store.Load().Sessions["s1"]
	require.False(t, ok)
}

func TestStop_UnknownSessionIsGraceful(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", []string{t.TempDir()})

	dispatch(t, d, `{"hook_event_name":"Stop","session_id":"ghost"}`)

	require.Len(t, *events, 1)
	var fields map[string]any
	require.NoError(t, json.Unmarshal((*events)[0].Data, &fields))
	require.Equal(t, "ghost", fields["externalSessionId"])
	require.NotContains(t, fields, "sessionId")
}

func TestPostToolUse_WriteReportsLanguageAndLines(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Write","tool_response":{"success":true},"tool_input":{"file_path":"a.rs"}}`)

	require.Len(t, *events, 1)
	require.Equal(t, "code_change", (*events)[0].Event)

	var payload struct {
		Language      string `json:"language"`
		LinesAdded    int    `json:"linesAdded"`
		LinesModified int    `json:"linesModified"`
		LinesDeleted  int    `json:"linesDeleted"`
		FilesChanged  int    `json:"filesChanged"`
	}
	require.NoError(t, json.Unmarshal((*events)[0].Data, &payload))
	require.Equal(t, "rust", payload.Language)
	require.Equal(t, 1, payload.LinesAdded)
	require.Equal(t, 0, payload.LinesModified)
	require.Equal(t, 0, payload.LinesDeleted)
	require.Equal(t, 1, payload.FilesChanged)
}

func TestPostToolUse_EditReportsModifiedLine(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Edit","tool_input":{"file_path":"main.go"}}`)

	require.Len(t, *events, 1)
	var payload struct {
		Language      string `json:"language"`
		LinesAdded    int    `json:"linesAdded"`
		LinesModified int    `json:"linesModified"`
	}
	require.NoError(t, json.Unmarshal((*events)[0].Data, &payload))
	require.Equal(t, "go", payload.Language)
	require.Equal(t, 0, payload.LinesAdded)
	require.Equal(t, 1, payload.LinesModified)
}

func TestPostToolUse_Filtering(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "tool outside allow-list",
			input: `{"hook_event_name":"PostToolUse","tool_name":"Bash","tool_response":{"success":true}}`,
		},
		{
			name:  "failed tool call",
			input: `{"hook_event_name":"PostToolUse","tool_name":"Write","tool_response":{"success":false},"tool_input":{"file_path":"a.rs"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, events := newCaptureServer(t, http.StatusOK, `{}`)
			d, _ := newTestDispatcher(t, srv.URL, "key", nil)

			dispatch(t, d, tc.input)
			require.Empty(t, *events)
		})
	}
}

func TestPostToolUse_UnmappedExtensionOmitsLanguage(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Write","tool_input":{"file_path":"notes.xyz"}}`)

	require.Len(t, *events, 1)
	var fields map[string]any
	require.NoError(t, json.Unmarshal((*events)[0].Data, &fields))
	require.NotContains(t, fields, "language")
}

func TestMissingAPIKey_NoNetworkCallForAnyEvent(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{"id":"d1"}`)
	d, store := newTestDispatcher(t, srv.URL, "", nil)

	inputs := []string{
		`{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo/proj"}`,
		`{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Write","tool_input":{"file_path":"a.rs"}}`,
		`{"hook_event_name":"Stop","session_id":"s1"}`,
	}
	for _, in := range inputs {
		dispatch(t, d, in)
	}

	require.Empty(t, *events)
	// Lifecycle bookkeeping still works without a key.
	_, ok := store.Load().Sessions["s1"]
	require.False(t, ok, "stop removed the record created by start")
}

func TestDispatch_UnknownEventIgnored(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":"Notification","session_id":"s1"}`)
	require.Empty(t, *events)
}

func TestDispatch_MalformedInput(t *testing.T) {
	srv, events := newCaptureServer(t, http.StatusOK, `{}`)
	d, _ := newTestDispatcher(t, srv.URL, "key", nil)

	dispatch(t, d, `{"hook_event_name":`)
	require.Empty(t, *events)
}
