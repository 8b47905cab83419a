package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/intent"
	appErrors "intent-orchestrator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func replyServer(t *testing.T, content string, seen *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(urls ...string) *Client {
	endpoints := make([]config.LLMEndpoint, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, config.LLMEndpoint{URL: u, Model: "test-model"})
	}
	return NewClient(config.LLMConfig{Endpoints: endpoints, APIKey: "test-key"})
}

func TestComplete(t *testing.T) {
	var seen completionRequest
	srv := replyServer(t, "  hello  ", &seen)

	reply, err := newTestClient(srv.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "test-model", seen.Model)
	assert.Equal(t, 1000, seen.MaxTokens)
}

func TestCompleteFallsBackOnUnavailable(t *testing.T) {
	var failed int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&failed, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	up := replyServer(t, "from mirror", nil)

	reply, err := newTestClient(down.URL, up.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

	require.NoError(t, err)
	assert.Equal(t, "from mirror", reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&failed))
}

func TestCompleteDoesNotFallBackOnClientError(t *testing.T) {
	var mirrorCalls int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer bad.Close()
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&mirrorCalls, 1)
	}))
	defer mirror.Close()

	_, err := newTestClient(bad.URL, mirror.URL).Complete(context.Background(), nil)

	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "API error 400")
	assert.Zero(t, atomic.LoadInt32(&mirrorCalls))
}

func TestCompleteAllUnavailable(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	_, err := newTestClient(down.URL).Complete(context.Background(), nil)
	assert.True(t, IsUnavailable(err))

	_, err = newTestClient().Complete(context.Background(), nil)
	assert.True(t, IsUnavailable(err))
}

func TestClassifyIntent(t *testing.T) {
	var seen completionRequest
	srv := replyServer(t, "```json\n{\"action\": \"sal_troubleshoot\", \"confidence\": 0.92, \"reasoning\": \"device events\"}\n```", &seen)
	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "earlier question"},
		{Role: conversation.RoleAssistant, Content: "earlier answer"},
	}

	got, err := newTestClient(srv.URL).ClassifyIntent(context.Background(), "is Paradise sending events?", history)

	require.NoError(t, err)
	assert.Equal(t, &intent.Intent{Action: intent.ActionSALTroubleshoot, Confidence: 0.92, Reasoning: "device events"}, got)
	require.Len(t, seen.Messages, 4)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "earlier answer", seen.Messages[2].Content)
	assert.Equal(t, "is Paradise sending events?", seen.Messages[3].Content)
}

func TestParseIntentFallbacks(t *testing.T) {
	tests := []struct {
		reply      string
		action     intent.Action
		confidence float64
	}{
		{"I think they want to read a csv file", intent.ActionFileRead, 0.7},
		{"probably a database lookup", intent.ActionDynamoDBQuery, 0.7},
		{"no idea", intent.ActionGeneralChat, 0.5},
		{`{"action": "launch_rocket", "confidence": 0.9}`, intent.ActionGeneralChat, 0.9},
		{`{"action": "scc_query"}`, intent.ActionSCCQuery, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got := parseIntent(tt.reply)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}

func TestExtractParams(t *testing.T) {
	srv := replyServer(t, `{"operation": "check_all_devices", "limit": 20}`, nil)

	params, err := newTestClient(srv.URL).ExtractParams(context.Background(), "check all devices", intent.ActionSALTroubleshoot)

	require.NoError(t, err)
	assert.Equal(t, "check_all_devices", params["operation"])
	assert.Equal(t, float64(20), params["limit"])

	_, err = newTestClient(srv.URL).ExtractParams(context.Background(), "x", intent.Action("unknown_action"))
	assert.Error(t, err)
}

func TestExtractParamsRejectsNonJSON(t *testing.T) {
	srv := replyServer(t, "Sure! Which device?", nil)

	_, err := newTestClient(srv.URL).ExtractParams(context.Background(), "check it", intent.ActionSALTroubleshoot)
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	var seen completionRequest
	srv := replyServer(t, "All 3 devices are healthy.", &seen)

	reply, err := newTestClient(srv.URL).FormatResult(context.Background(), "are devices ok?", intent.ActionSALTroubleshoot, map[string]any{"status": "healthy"})

	require.NoError(t, err)
	assert.Equal(t, "All 3 devices are healthy.", reply)
	assert.Contains(t, seen.Messages[1].Content, `"status": "healthy"`)
}

type stubCompleter struct {
	reply string
	err   error
	got   []Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	s.got = messages
	return s.reply, s.err
}

func TestChatTool(t *testing.T) {
	stub := &stubCompleter{reply: "Hi there"}
	tool := NewChatTool(stub)

	out, err := tool.Process(context.Background(), "chat", map[string]any{"message": "hello", "system_message": "be brief"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"response": "Hi there"}, out)
	require.Len(t, stub.got, 2)
	assert.Equal(t, "system", stub.got[0].Role)

	_, err = tool.Process(context.Background(), "chat", map[string]any{})
	assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))

	_, err = tool.Process(context.Background(), "summarize", nil)
	assert.Equal(t, appErrors.CodeUnsupportedOperation, appErrors.CodeOf(err))
}

func TestChatToolUnavailable(t *testing.T) {
	tool := NewChatTool(&stubCompleter{err: errors.Join(ErrLLMUnavailable, errors.New("down"))})

	out, err := tool.Process(context.Background(), "chat", map[string]any{"message": "hello"})
	assert.Nil(t, out)
	assert.Equal(t, appErrors.CodeLLMUnavailable, appErrors.CodeOf(err))
}
