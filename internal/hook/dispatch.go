package hook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/devmetrics/devmetrics-hook/internal/config"
	"github.com/devmetrics/devmetrics-hook/internal/ingest"
	"github.com/devmetrics/devmetrics-hook/internal/journal"
	"github.com/devmetrics/devmetrics-hook/internal/logs"
	"github.com/devmetrics/devmetrics-hook/internal/state"
)

// Sender posts one event to the ingestion service.
type Sender interface {
	Send(ctx context.Context, event string, data any) (*ingest.Response, error)
}

// Dispatcher routes one hook invocation to its handler. Every failure
// inside a handler degrades to fewer or less accurate metrics; none may
// surface to the invoking host.
type Dispatcher struct {
	cfg     *config.Config
	store   *state.Store
	client  Sender
	journal *journal.DB // may be nil
	logger  *slog.Logger
	now     func() time.Time
}

func NewDispatcher(cfg *config.Config, store *state.Store, client Sender, jdb *journal.DB, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   store,
		client:  client,
		journal: jdb,
		logger:  logger,
		now:     time.Now,
	}
}

// Dispatch parses the raw stdin document and runs the matching handler.
// Malformed input and unknown event kinds are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		d.logger.Error("failed to parse stdin", "error", err)
		return
	}

	d.logger.Debug("received hook event", "event", in.HookEventName)
	st := d.store.Load()

	switch in.HookEventName {
	case EventSessionStart:
		d.handleSessionStart(ctx, &in, st)
	case EventStop:
		d.handleStop(ctx, &in, st)
	case EventPostToolUse:
		d.handlePostToolUse(ctx, &in, st)
	default:
		d.logger.Debug("unhandled hook event", "event", in.HookEventName)
	}
}

// send wraps the client call, classifying the result for the journal.
func (d *Dispatcher) send(ctx context.Context, event string, data any) (*ingest.Response, string) {
	resp, err := d.client.Send(ctx, event, data)
	switch {
	case errors.Is(err, ingest.ErrNoAPIKey):
		return nil, journal.OutcomeSkipped
	case err != nil:
		d.logger.Debug("send failed", "event", event, "error", err)
		return nil, journal.OutcomeFailed
	default:
		return resp, journal.OutcomeSent
	}
}

func (d *Dispatcher) record(e journal.Entry) {
	if err := d.journal.Record(e); err != nil {
		d.logger.Debug("journal write failed", "error", err)
	}
}

func (d *Dispatcher) handleSessionStart(ctx context.Context, in *Input, st *state.State) {
	project := projectName(in.Cwd)
	d.logger.Debug("session start", "session", in.SessionID, "project", project)

	payload := startPayload{
		Tool:              "claude_code",
		ProjectName:       project,
		ExternalSessionID: in.SessionID,
		Metadata: startMetadata{
			Cwd:         in.Cwd,
			HookVersion: hookVersion,
		},
	}
	resp, outcome := d.send(ctx, eventSessionStart, payload)

	// The record is kept even when the send failed so a later stop can
	// still compute duration and clean up.
	rec := state.Record{
		StartTimestamp: unixSeconds(d.now()),
		ProjectName:    project,
		Cwd:            in.Cwd,
	}
	if resp != nil {
		rec.DashboardID = resp.ID
		d.logger.Debug("session mapped", "session", in.SessionID, "dashboard_id", resp.ID)
	}
	st.Sessions[in.SessionID] = rec
	d.store.Save(st)

	d.record(journal.Entry{
		Time:      d.now(),
		Event:     eventSessionStart,
		SessionID: in.SessionID,
		Project:   project,
		Outcome:   outcome,
		Detail:    journal.DetailJSON(payload),
	})
}

func (d *Dispatcher) handleStop(ctx context.Context, in *Input, st *state.State) {
	rec, ok := st.Sessions[in.SessionID]
	d.logger.Debug("session stop", "session", in.SessionID, "known", ok)

	var start time.Time
	if ok {
		start = rec.StartTime()
	}

	totals := logs.AggregateSession(d.cfg.LogRoots, start)

	var payload any
	if totals.HasUsage() {
		var duration *int64
		if !start.IsZero() {
			m := int64(d.now().Sub(start).Minutes())
			duration = &m
		}
		payload = endUsagePayload{
			SessionID:             rec.DashboardID,
			ExternalSessionID:     in.SessionID,
			DurationMinutes:       duration,
			TotalInputTokens:      totals.InputTokens,
			TotalOutputTokens:     totals.OutputTokens,
			TotalCacheReadTokens:  totals.CacheReadTokens,
			TotalCacheWriteTokens: totals.CacheCreationTokens,
			Model:                 totals.Model,
		}
	} else {
		// End the session even without token data.
		payload = endPayload{
			SessionID:         rec.DashboardID,
			ExternalSessionID: in.SessionID,
		}
	}
	_, outcome := d.send(ctx, eventSessionEnd, payload)

	// Cleanup is unconditional: a failed send must not leak the record.
	delete(st.Sessions, in.SessionID)
	d.store.Save(st)

	d.record(journal.Entry{
		Time:      d.now(),
		Event:     eventSessionEnd,
		SessionID: in.SessionID,
		Project:   rec.ProjectName,
		Outcome:   outcome,
		Detail:    journal.DetailJSON(payload),
	})
}

func (d *Dispatcher) handlePostToolUse(ctx context.Context, in *Input, st *state.State) {
	// Only Write and Edit touch files in a way worth reporting.
	if in.ToolName != "Write" && in.ToolName != "Edit" {
		return
	}
	if !in.ToolResponse.Succeeded() {
		return
	}

	d.logger.Debug("post tool use", "tool", in.ToolName, "session", in.SessionID)
	rec := st.Sessions[in.SessionID]

	// Fixed per-tool line estimates; true diff sizes are not available to
	// the hook.
	linesAdded, linesModified := 0, 0
	if in.ToolName == "Write" {
		linesAdded = 1
	} else {
		linesModified = 1
	}

	project := projectName(in.Cwd)
	payload := codeChangePayload{
		SessionID:         rec.DashboardID,
		ExternalSessionID: in.SessionID,
		LinesAdded:        linesAdded,
		LinesModified:     linesModified,
		LinesDeleted:      0,
		FilesChanged:      1,
		Language:          languageForPath(in.ToolInput.FilePath),
		Repository:        project,
	}
	_, outcome := d.send(ctx, eventCodeChange, payload)

	d.record(journal.Entry{
		Time:      d.now(),
		Event:     eventCodeChange,
		SessionID: in.SessionID,
		Project:   project,
		Outcome:   outcome,
		Detail:    journal.DetailJSON(payload),
	})
}

func projectName(cwd string) string {
	if cwd == "" {
		return ""
	}
	return filepath.Base(cwd)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
