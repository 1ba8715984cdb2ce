// Package hook interprets Claude Code hook events and turns them into
// DevMetrics telemetry.
package hook

// Hook event names dispatched by Claude Code.
const (
	EventSessionStart = "SessionStart"
	EventStop         = "Stop"
	EventPostToolUse  = "PostToolUse"
)

// Outbound event kinds understood by the ingestion API.
const (
	eventSessionStart = "session_start"
	eventSessionEnd   = "session_end"
	eventCodeChange   = "code_change"
)

// Input is the JSON object Claude Code writes to the hook's stdin. Fields
// beyond the discriminator are populated per event kind.
type Input struct {
	HookEventName string       `json:"hook_event_name"`
	SessionID     string       `json:"session_id"`
	Cwd           string       `json:"cwd"`
	ToolName      string       `json:"tool_name"`
	ToolInput     ToolInput    `json:"tool_input"`
	ToolResponse  ToolResponse `json:"tool_response"`
}

type ToolInput struct {
	FilePath string `json:"file_path"`
}

// ToolResponse carries the tool outcome. A missing success field counts as
// success.
type ToolResponse struct {
	Success *bool `json:"success"`
}

func (r ToolResponse) Succeeded() bool {
	return r.Success == nil || *r.Success
}
