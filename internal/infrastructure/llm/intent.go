package llm

import (
	"context"
	"encoding/json"
	"strings"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/intent"
)

// history turns included in classification prompts
const intentHistoryTurns = 6

const intentPrompt = `You are an intent classifier. Analyze the user's input and determine what action they want to perform.

Available actions:
1. "file_read" - User wants to read, analyze, or search in CSV/text files
2. "dynamodb_query" - User wants to query or search DynamoDB tables
3. "scc_query" - User wants to query the device inventory for firewall devices
4. "rest_api" - User wants to make REST API calls to external endpoints
5. "sal_troubleshoot" - User wants to troubleshoot event streaming from firewall devices
6. "general_chat" - General conversation or questions not requiring specific tools

Respond with ONLY a JSON object in this format:
{"action": "file_read|dynamodb_query|scc_query|rest_api|sal_troubleshoot|general_chat", "confidence": 0.0-1.0, "reasoning": "brief explanation"}

Examples:
- "Read the sales data from report.csv" -> file_read
- "Find user with ID 12345 in user table" -> dynamodb_query
- "List all firewall devices" -> scc_query
- "Call the API endpoint https://api.example.com" -> rest_api
- "Find firewall device Paradise and check if it's sending events" -> sal_troubleshoot
- "Check if all devices are sending events" -> sal_troubleshoot
- "What's the weather like?" -> general_chat`

// ClassifyIntent asks the model which action text calls for. A reply that is
// not JSON is classified by keywords instead.
func (c *Client) ClassifyIntent(ctx context.Context, text string, history []conversation.Message) (*intent.Intent, error) {
	messages := []Message{{Role: "system", Content: intentPrompt}}
	messages = append(messages, historyMessages(history, intentHistoryTurns)...)
	messages = append(messages, Message{Role: "user", Content: text})

	reply, err := c.complete(ctx, messages, Options{Temperature: 0.1, MaxTokens: 200})
	if err != nil {
		return nil, err
	}
	return parseIntent(reply), nil
}

func parseIntent(reply string) *intent.Intent {
	parsed := intent.Intent{Confidence: 0.5}
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil {
		return keywordIntent(reply)
	}
	if !parsed.Action.Valid() {
		parsed.Action = intent.ActionGeneralChat
	}
	return &parsed
}

func keywordIntent(reply string) *intent.Intent {
	text := strings.ToLower(reply)
	switch {
	case containsAny(text, "file", "csv", "text", "read"):
		return &intent.Intent{Action: intent.ActionFileRead, Confidence: 0.7, Reasoning: "Fallback classification based on keywords"}
	case containsAny(text, "dynamodb", "table", "query", "database"):
		return &intent.Intent{Action: intent.ActionDynamoDBQuery, Confidence: 0.7, Reasoning: "Fallback classification based on keywords"}
	default:
		return &intent.Intent{Action: intent.ActionGeneralChat, Confidence: 0.5, Reasoning: "Fallback to general chat"}
	}
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func historyMessages(history []conversation.Message, turns int) []Message {
	if len(history) > turns {
		history = history[len(history)-turns:]
	}
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == conversation.RoleSystem {
			continue
		}
		out = append(out, Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
