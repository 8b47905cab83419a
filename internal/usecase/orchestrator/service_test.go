package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/intent"
	"intent-orchestrator/internal/domain/tool"
	appErrors "intent-orchestrator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAssistant is a mock implementation of Assistant
type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) ClassifyIntent(ctx context.Context, text string, history []conversation.Message) (*intent.Intent, error) {
	args := m.Called(ctx, text, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intent.Intent), args.Error(1)
}

func (m *MockAssistant) ExtractParams(ctx context.Context, text string, action intent.Action) (map[string]any, error) {
	args := m.Called(ctx, text, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockAssistant) FormatResult(ctx context.Context, text string, action intent.Action, result any) (string, error) {
	args := m.Called(ctx, text, action, result)
	return args.String(0), args.Error(1)
}

// memoryHistory keeps messages in process.
type memoryHistory struct {
	mu       sync.Mutex
	messages map[string][]conversation.Message
	failList bool
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{messages: map[string][]conversation.Message{}}
}

func (h *memoryHistory) Append(_ context.Context, msg *conversation.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[msg.SessionID] = append(h.messages[msg.SessionID], *msg)
	return nil
}

func (h *memoryHistory) List(_ context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failList {
		return nil, errors.New("disk full")
	}
	msgs := h.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]conversation.Message{}, msgs...), nil
}

func (h *memoryHistory) Clear(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, sessionID)
	return nil
}

func (h *memoryHistory) Sessions(context.Context) ([]conversation.SessionInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []conversation.SessionInfo{}
	for id, msgs := range h.messages {
		out = append(out, conversation.SessionInfo{SessionID: id, MessageCount: len(msgs)})
	}
	return out, nil
}

func (h *memoryHistory) Stats(_ context.Context, sessionID string) (*conversation.Stats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.messages[sessionID]
	if len(msgs) == 0 {
		return nil, conversation.ErrSessionNotFound
	}
	return &conversation.Stats{SessionID: sessionID, TotalMessages: len(msgs)}, nil
}

func (h *memoryHistory) Close() error { return nil }

// stubTool records its last call and answers with a fixed result.
type stubTool struct {
	name   string
	ops    []string
	result any
	err    error

	gotOp     string
	gotParams map[string]any
}

func (s *stubTool) Name() string         { return s.name }
func (s *stubTool) Description() string  { return s.name + " tool" }
func (s *stubTool) Operations() []string { return s.ops }
func (s *stubTool) Process(_ context.Context, op string, params map[string]any) (any, error) {
	s.gotOp, s.gotParams = op, params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var unavailable = errors.New("llm down")

func isUnavailable(err error) bool { return errors.Is(err, unavailable) }

func newTestService(assistant Assistant, history conversation.Repository, tools ...tool.Tool) *Service {
	return NewService(tool.NewRegistry(tools...), assistant, history, "main_session", isUnavailable)
}

func TestHandleRoutesToTool(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	history := newMemoryHistory()
	sal := &stubTool{
		name:   "sal_troubleshoot",
		ops:    []string{"troubleshoot_device", "check_all_devices"},
		result: map[string]any{"status": "healthy"},
	}
	svc := newTestService(assistant, history, sal)

	classified := &intent.Intent{Action: intent.ActionSALTroubleshoot, Confidence: 0.9}
	assistant.On("ClassifyIntent", ctx, "check all devices", []conversation.Message{}).Return(classified, nil)
	assistant.On("ExtractParams", ctx, "check all devices", intent.ActionSALTroubleshoot).
		Return(map[string]any{"operation": "Check_All_Devices", "limit": float64(5)}, nil)
	assistant.On("FormatResult", ctx, "check all devices", intent.ActionSALTroubleshoot, sal.result).
		Return("Everything is healthy.", nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "check all devices"})

	require.NoError(t, err)
	assert.Equal(t, "main_session", resp.SessionID)
	assert.Equal(t, "sal_troubleshoot", resp.Tool)
	assert.Equal(t, "check_all_devices", resp.Operation)
	assert.Equal(t, "check_all_devices", sal.gotOp)
	assert.Equal(t, map[string]any{"limit": float64(5)}, sal.gotParams)
	assert.Equal(t, "Everything is healthy.", resp.Reply)
	assistant.AssertExpectations(t)

	saved, _ := history.List(ctx, "main_session", 0)
	require.Len(t, saved, 2)
	assert.Equal(t, conversation.RoleUser, saved[0].Role)
	assert.Equal(t, "Everything is healthy.", saved[1].Content)
	assert.Equal(t, "sal_troubleshoot", saved[1].Metadata["action"])
}

func TestHandleDefaultsOperation(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	scc := &stubTool{name: "scc_tool", ops: []string{"list", "find"}, result: []string{"a"}}
	svc := newTestService(assistant, newMemoryHistory(), scc)

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionSCCQuery}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, intent.ActionSCCQuery).Return(map[string]any{}, nil)
	assistant.On("FormatResult", ctx, mock.Anything, intent.ActionSCCQuery, mock.Anything).Return("", errors.New("bad format"))

	resp, err := svc.Handle(ctx, &ChatRequest{SessionID: "s1", Message: "list devices"})

	require.NoError(t, err)
	assert.Equal(t, "list", scc.gotOp)
	assert.JSONEq(t, `["a"]`, resp.Reply)
}

func TestHandleGeneralChatSkipsExtraction(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	chat := &stubTool{name: "llm_chat", ops: []string{"chat"}, result: map[string]any{"response": "Hello!"}}
	svc := newTestService(assistant, newMemoryHistory(), chat)

	assistant.On("ClassifyIntent", ctx, "hi", mock.Anything).Return(&intent.Intent{Action: intent.ActionGeneralChat}, nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Reply)
	assert.Equal(t, map[string]any{"message": "hi"}, chat.gotParams)
	assistant.AssertNotCalled(t, "ExtractParams", mock.Anything, mock.Anything, mock.Anything)
	assistant.AssertNotCalled(t, "FormatResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleToolErrorBecomesReply(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	sal := &stubTool{
		name: "sal_troubleshoot",
		ops:  []string{"troubleshoot_device"},
		err:  appErrors.NewAppError(appErrors.CodeDirectoryUnavailable, "Failed to search device directory", nil),
	}
	history := newMemoryHistory()
	svc := newTestService(assistant, history, sal)

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionSALTroubleshoot}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, mock.Anything).Return(map[string]any{"device_criteria": "Paradise"}, nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "is Paradise ok?"})

	require.NoError(t, err)
	assert.Equal(t, appErrors.CodeDirectoryUnavailable, resp.Error)
	assert.Contains(t, resp.Reply, "Failed to search device directory")
	saved, _ := history.List(ctx, "main_session", 0)
	assert.Len(t, saved, 2)
}

func TestHandleMissingToolBecomesReply(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	svc := newTestService(assistant, newMemoryHistory())

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionDynamoDBQuery}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, mock.Anything).Return(map[string]any{"table_name": "t"}, nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "scan table t"})

	require.NoError(t, err)
	assert.Equal(t, appErrors.CodeToolNotFound, resp.Error)
}

func TestHandleDynamoWithoutTableListsTables(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	ddb := &stubTool{name: "dynamodb_query", ops: []string{"list_tables", "query"}, result: map[string]any{"tables": []string{}}}
	svc := newTestService(assistant, newMemoryHistory(), ddb)

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionDynamoDBQuery}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, mock.Anything).Return(map[string]any{"operation": "scan"}, nil)
	assistant.On("FormatResult", ctx, mock.Anything, mock.Anything, mock.Anything).Return("No tables.", nil)

	_, err := svc.Handle(ctx, &ChatRequest{Message: "scan something"})

	require.NoError(t, err)
	assert.Equal(t, "list_tables", ddb.gotOp)
}

func TestHandleAsksForMissingFilePath(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	files := &stubTool{name: "file_reader", ops: []string{"read"}}
	svc := newTestService(assistant, newMemoryHistory(), files)

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionFileRead}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, mock.Anything).Return(map[string]any{"operation": "read"}, nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "read my file"})

	require.NoError(t, err)
	assert.True(t, resp.NeedsInput)
	assert.Empty(t, files.gotOp)
}

func TestHandleExtractionFailureAsksToRephrase(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	svc := newTestService(assistant, newMemoryHistory())

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(&intent.Intent{Action: intent.ActionRESTAPI}, nil)
	assistant.On("ExtractParams", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("not json"))

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "call it"})

	require.NoError(t, err)
	assert.True(t, resp.NeedsInput)
	assert.Contains(t, resp.Reply, "not json")
}

func TestHandleAssistantUnavailable(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	svc := newTestService(assistant, newMemoryHistory())

	assistant.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).Return(nil, unavailable)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "hello"})

	assert.Nil(t, resp)
	assert.Equal(t, appErrors.CodeLLMUnavailable, appErrors.CodeOf(err))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHandleContinuesWhenHistoryUnreadable(t *testing.T) {
	ctx := context.Background()
	assistant := new(MockAssistant)
	history := newMemoryHistory()
	history.failList = true
	chat := &stubTool{name: "llm_chat", ops: []string{"chat"}, result: map[string]any{"response": "ok"}}
	svc := newTestService(assistant, history, chat)

	assistant.On("ClassifyIntent", ctx, "hi", []conversation.Message(nil)).Return(&intent.Intent{Action: intent.ActionGeneralChat}, nil)

	resp, err := svc.Handle(ctx, &ChatRequest{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Reply)
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	svc := newTestService(new(MockAssistant), newMemoryHistory())

	_, err := svc.Handle(context.Background(), &ChatRequest{Message: "   "})
	assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))
}

func TestCallToolAndList(t *testing.T) {
	ctx := context.Background()
	scc := &stubTool{name: "scc_tool", ops: []string{"list"}, result: "page"}
	svc := newTestService(new(MockAssistant), newMemoryHistory(), scc)

	out, err := svc.CallTool(ctx, &CallToolRequest{Tool: "scc_tool"})
	require.NoError(t, err)
	assert.Equal(t, "page", out)
	assert.Equal(t, "list", scc.gotOp)

	_, err = svc.CallTool(ctx, &CallToolRequest{Tool: "nope"})
	assert.Equal(t, appErrors.CodeToolNotFound, appErrors.CodeOf(err))

	_, err = svc.CallTool(ctx, &CallToolRequest{})
	assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))

	tools := svc.ListTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "scc_tool", tools[0].Name)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	history := newMemoryHistory()
	svc := newTestService(new(MockAssistant), history)
	require.NoError(t, history.Append(ctx, &conversation.Message{SessionID: "main_session", Role: conversation.RoleUser, Content: "a"}))

	msgs, err := svc.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	stats, err := svc.Stats(ctx, "main_session")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMessages)

	_, err = svc.Stats(ctx, "other")
	assert.Equal(t, appErrors.CodeSessionNotFound, appErrors.CodeOf(err))

	require.NoError(t, svc.Clear(ctx, ""))
	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
