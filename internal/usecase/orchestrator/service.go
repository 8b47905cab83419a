package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/intent"
	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/logger"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"go.uber.org/zap"
)

// Assistant is the language-model side of routing. *llm.Client satisfies it.
type Assistant interface {
	ClassifyIntent(ctx context.Context, text string, history []conversation.Message) (*intent.Intent, error)
	ExtractParams(ctx context.Context, text string, action intent.Action) (map[string]any, error)
	FormatResult(ctx context.Context, text string, action intent.Action, result any) (string, error)
}

// actionTools maps a classified action to the tool that serves it.
var actionTools = map[intent.Action]string{
	intent.ActionFileRead:        "file_reader",
	intent.ActionDynamoDBQuery:   "dynamodb_query",
	intent.ActionSCCQuery:        "scc_tool",
	intent.ActionRESTAPI:         "rest_api",
	intent.ActionSALTroubleshoot: "sal_troubleshoot",
	intent.ActionGeneralChat:     "llm_chat",
}

// ErrUnavailable marks assistant failures caused by the model being unreachable.
var ErrUnavailable = errors.New("assistant unavailable")

type Service struct {
	registry       *tool.Registry
	assistant      Assistant
	history        conversation.Repository
	defaultSession string
	isUnavailable  func(error) bool
}

// NewService wires the orchestrator. isUnavailable classifies assistant errors
// that should surface as LLM_UNAVAILABLE; nil treats none that way.
func NewService(registry *tool.Registry, assistant Assistant, history conversation.Repository, defaultSession string, isUnavailable func(error) bool) *Service {
	if isUnavailable == nil {
		isUnavailable = func(error) bool { return false }
	}
	return &Service{
		registry:       registry,
		assistant:      assistant,
		history:        history,
		defaultSession: defaultSession,
		isUnavailable:  isUnavailable,
	}
}

func (s *Service) DefaultSession() string {
	return s.defaultSession
}

// Handle routes one user message to a tool and records the exchange.
func (s *Service) Handle(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Message = utils.SanitizeText(req.Message)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}
	session := s.session(req.SessionID)

	recent, err := s.history.List(ctx, session, contextTurns)
	if err != nil {
		logger.Warn("Failed to load conversation history",
			zap.String("session_id", session),
			zap.Error(err),
		)
		recent = nil
	}

	classified, err := s.assistant.ClassifyIntent(ctx, req.Message, recent)
	if err != nil {
		return nil, s.assistantError("Failed to analyze intent", err)
	}

	resp := &ChatResponse{SessionID: session, Intent: classified}
	toolName, ok := actionTools[classified.Action]
	if !ok {
		toolName = actionTools[intent.ActionGeneralChat]
	}
	resp.Tool = toolName

	logger.Info("Intent classified",
		zap.String("session_id", session),
		zap.String("action", string(classified.Action)),
		zap.Float64("confidence", classified.Confidence),
		zap.String("tool", toolName),
		zap.String("event", "intent_classified"),
	)

	params, err := s.paramsFor(ctx, req.Message, classified.Action)
	if err != nil {
		if s.isUnavailable(err) {
			return nil, s.assistantError("Failed to extract parameters", err)
		}
		resp.Reply = fmt.Sprintf("I couldn't work out the parameters for that request (%v). Could you rephrase it?", err)
		resp.NeedsInput = true
		s.record(ctx, session, req.Message, resp)
		return resp, nil
	}

	t, err := s.registry.Get(toolName)
	if err != nil {
		resp.Error = appErrors.CodeOf(err)
		resp.Reply = fmt.Sprintf("The %s tool is not available in this deployment.", toolName)
		s.record(ctx, session, req.Message, resp)
		return resp, nil
	}
	operation := takeOperation(params, t)
	adjustParams(classified.Action, &operation, params)
	resp.Operation = operation
	resp.Params = params

	if prompt := missingInput(classified.Action, params); prompt != "" {
		resp.Reply = prompt
		resp.NeedsInput = true
		s.record(ctx, session, req.Message, resp)
		return resp, nil
	}

	result, err := t.Process(ctx, operation, params)
	if err != nil {
		logger.Warn("Tool call failed",
			zap.String("session_id", session),
			zap.String("tool", toolName),
			zap.String("operation", operation),
			zap.Error(err),
			zap.String("event", "tool_call_failed"),
		)
		resp.Error = appErrors.CodeOf(err)
		resp.Reply = fmt.Sprintf("The %s tool could not complete the %s operation: %v", toolName, operation, err)
		s.record(ctx, session, req.Message, resp)
		return resp, nil
	}
	resp.Result = result
	resp.Reply = s.formatReply(ctx, req.Message, classified.Action, result)

	s.record(ctx, session, req.Message, resp)
	return resp, nil
}

func (s *Service) paramsFor(ctx context.Context, text string, action intent.Action) (map[string]any, error) {
	if action == intent.ActionGeneralChat || !action.Valid() {
		return map[string]any{"message": text}, nil
	}
	params, err := s.assistant.ExtractParams(ctx, text, action)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// formatReply presents result in prose, falling back to indented JSON.
func (s *Service) formatReply(ctx context.Context, text string, action intent.Action, result any) string {
	if action == intent.ActionGeneralChat || !action.Valid() {
		if m, ok := result.(map[string]any); ok {
			if reply, ok := m["response"].(string); ok {
				return reply
			}
		}
	}

	reply, err := s.assistant.FormatResult(ctx, text, action, result)
	if err == nil && strings.TrimSpace(reply) != "" {
		return reply
	}
	logger.Warn("Result formatting failed, returning raw result",
		zap.String("action", string(action)),
		zap.Error(err),
	)

	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

func (s *Service) record(ctx context.Context, session, userText string, resp *ChatResponse) {
	metadata := map[string]any{"tool": resp.Tool}
	if resp.Intent != nil {
		metadata["action"] = string(resp.Intent.Action)
	}
	if resp.Operation != "" {
		metadata["operation"] = resp.Operation
	}

	messages := []*conversation.Message{
		{SessionID: session, Role: conversation.RoleUser, Content: userText},
		{SessionID: session, Role: conversation.RoleAssistant, Content: resp.Reply, Metadata: metadata},
	}
	for _, m := range messages {
		if err := s.history.Append(ctx, m); err != nil {
			logger.Warn("Failed to save conversation message",
				zap.String("session_id", session),
				zap.String("role", string(m.Role)),
				zap.Error(err),
			)
			return
		}
	}
}

func (s *Service) assistantError(message string, err error) error {
	if s.isUnavailable(err) {
		return appErrors.NewAppError(appErrors.CodeLLMUnavailable, message, errors.Join(ErrUnavailable, err))
	}
	return appErrors.NewAppError(appErrors.CodeInternal, message, err)
}

func (s *Service) session(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.defaultSession
}

// takeOperation removes "operation" from params, defaulting to the tool's
// first operation.
func takeOperation(params map[string]any, t tool.Tool) string {
	op, _ := params["operation"].(string)
	delete(params, "operation")
	if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
		return op
	}
	if ops := t.Operations(); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

func adjustParams(action intent.Action, operation *string, params map[string]any) {
	// without a table there is nothing to query; show what exists instead
	if action == intent.ActionDynamoDBQuery && *operation != "list_tables" {
		if name, _ := params["table_name"].(string); name == "" {
			*operation = "list_tables"
		}
	}
}

func missingInput(action intent.Action, params map[string]any) string {
	switch action {
	case intent.ActionFileRead:
		if path, _ := params["file_path"].(string); path == "" {
			return "I'd be happy to help with file operations! Please provide the path to the file you'd like me to read or search."
		}
	case intent.ActionRESTAPI:
		if u, _ := params["url"].(string); u == "" {
			return "Which URL should I call? Please include the full address, for example https://api.example.com/items."
		}
	}
	return ""
}
