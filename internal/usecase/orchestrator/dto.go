package orchestrator

import (
	"intent-orchestrator/internal/domain/intent"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
	// recent turns given to the classifier
	contextTurns = 10
)

type ChatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=255"`
	Message   string `json:"message" validate:"required,max=8000"`
}

type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Intent     *intent.Intent `json:"intent,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	Operation  string         `json:"operation,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Result     any            `json:"result,omitempty"`
	Reply      string         `json:"reply"`
	Error      string         `json:"error,omitempty"`
	NeedsInput bool           `json:"needs_input,omitempty"`
}

type CallToolRequest struct {
	Tool      string         `json:"tool" validate:"required"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}
