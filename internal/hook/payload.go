package hook

// hookVersion is reported in start metadata so the dashboard can tell hook
// generations apart.
const hookVersion = "2.0"

type startPayload struct {
	Tool              string        `json:"tool"`
	ProjectName       string        `json:"projectName,omitempty"`
	ExternalSessionID string        `json:"externalSessionId"`
	Metadata          startMetadata `json:"metadata"`
}

type startMetadata struct {
	Cwd         string `json:"cwd"`
	HookVersion string `json:"hookVersion"`
}

// endPayload is sent when a session stops without any recorded usage.
type endPayload struct {
	SessionID         string `json:"sessionId,omitempty"`
	ExternalSessionID string `json:"externalSessionId"`
}

// endUsagePayload is sent when a session stops with token usage found in
// the logs. DurationMinutes is null when no start time was recorded.
type endUsagePayload struct {
	SessionID             string `json:"sessionId,omitempty"`
	ExternalSessionID     string `json:"externalSessionId"`
	DurationMinutes       *int64 `json:"durationMinutes"`
	TotalInputTokens      int64  `json:"totalInputTokens"`
	TotalOutputTokens     int64  `json:"totalOutputTokens"`
	TotalCacheReadTokens  int64  `json:"totalCacheReadTokens"`
	TotalCacheWriteTokens int64  `json:"totalCacheWriteTokens"`
	Model                 string `json:"model,omitempty"`
}

type codeChangePayload struct {
	SessionID         string `json:"sessionId,omitempty"`
	ExternalSessionID string `json:"externalSessionId"`
	LinesAdded        int    `json:"linesAdded"`
	LinesModified     int    `json:"linesModified"`
	LinesDeleted      int    `json:"linesDeleted"`
	FilesChanged      int    `json:"filesChanged"`
	Language          string `json:"language,omitempty"`
	Repository        string `json:"repository,omitempty"`
}
