package llm

import (
	"context"
	"fmt"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"
)

const ChatToolName = "llm_chat"

// Completer is satisfied by *Client.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type chatParams struct {
	Message       string `json:"message" validate:"required"`
	SystemMessage string `json:"system_message"`
}

// ChatTool answers free-form questions directly with the model.
type ChatTool struct {
	llm Completer
}

func NewChatTool(llm Completer) *ChatTool {
	return &ChatTool{llm: llm}
}

func (t *ChatTool) Name() string { return ChatToolName }

func (t *ChatTool) Description() string {
	return "General conversation with the language model for questions that need no other tool."
}

func (t *ChatTool) Operations() []string { return []string{"chat"} }

func (t *ChatTool) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	if operation != "chat" {
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: chat", operation), nil)
	}

	var p chatParams
	if err := utils.DecodeParams(params, &p); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
	}
	if err := utils.ValidateStruct(&p); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}

	messages := make([]Message, 0, 2)
	if p.SystemMessage != "" {
		messages = append(messages, Message{Role: "system", Content: p.SystemMessage})
	}
	messages = append(messages, Message{Role: "user", Content: utils.SanitizeText(p.Message)})

	reply, err := t.llm.Complete(ctx, messages)
	if err != nil {
		if IsUnavailable(err) {
			return nil, appErrors.NewAppError(appErrors.CodeLLMUnavailable, "Language model unavailable", err)
		}
		return nil, appErrors.NewAppError(appErrors.CodeInternal, "Chat completion failed", err)
	}
	return map[string]any{"response": reply}, nil
}
