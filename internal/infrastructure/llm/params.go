package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"intent-orchestrator/internal/domain/intent"
)

var paramSchemas = map[intent.Action]string{
	intent.ActionFileRead: `{
  "file_path": "path to file (required)",
  "operation": "read|search|tenant_analysis",
  "limit": "number of rows to read, from phrases like 'first N records'",
  "search_term": "term to search for (only if operation is search)",
  "delimiter": "delimiter for CSV files (default: ,)"
}
Examples:
- "read first 10 records of sales.csv" -> {"file_path": "sales.csv", "operation": "read", "limit": 10}
- "analyze tenant processing times in stats.csv" -> {"file_path": "stats.csv", "operation": "tenant_analysis"}`,

	intent.ActionDynamoDBQuery: `{
  "table_name": "name of the table",
  "operation": "list_tables|describe|query|scan|get_item",
  "partition_key": "partition key name (for query)",
  "partition_value": "partition key value (for query)",
  "sort_key": "sort key name (optional for query)",
  "sort_value": "sort key value (optional for query)",
  "attribute_name": "attribute name (for scan)",
  "attribute_value": "attribute value (for scan)",
  "comparison": "eq|ne|lt|lte|gt|gte|contains|begins_with (default: eq)",
  "key": "full primary key as an object (for get_item)",
  "limit": 100
}
If the table name is not specified, use the "list_tables" operation.`,

	intent.ActionSCCQuery: `{
  "operation": "list|find|all|query",
  "search_term": "device name, type, version or serial (for find)",
  "limit": "number of devices to return (default: 50, max: 200)",
  "offset": "pagination offset (default: 0)",
  "max_devices": "maximum devices for the all operation (default: 1000)",
  "lucene_query": "query syntax like 'name:Paradise' or 'connectivityState:ONLINE' (for query)"
}
Examples:
- "list all firewall devices" -> {"operation": "list"}
- "find firewall device named Paradise" -> {"operation": "find", "search_term": "Paradise"}
- "devices in ONLINE state" -> {"operation": "query", "lucene_query": "connectivityState:ONLINE"}`,

	intent.ActionRESTAPI: `{
  "url": "the complete URL to call (required)",
  "operation": "get|post|put|delete|patch|paginated_get (default: get)",
  "headers": "additional headers as a JSON object (optional)",
  "params": "query parameters as a JSON object (optional)",
  "data": "JSON body for POST/PUT/PATCH requests (optional)",
  "auth_type": "bearer|basic|api_key|custom (optional)"
}`,

	intent.ActionSALTroubleshoot: `{
  "operation": "troubleshoot_device|check_all_devices|check_device_events",
  "device_criteria": "device name or search criteria (for troubleshoot_device)",
  "device_uuid": "telemetry UUID for a direct check (for check_device_events)",
  "stream_id": "stream ID, leave empty to use the configured default",
  "limit": "maximum devices to check for check_all_devices (default: 50)"
}
Examples:
- "Find firewall device Paradise and check if it's sending events" -> {"operation": "troubleshoot_device", "device_criteria": "Paradise"}
- "Check if all devices are sending events" -> {"operation": "check_all_devices"}
- "Check events for device with UUID abc123" -> {"operation": "check_device_events", "device_uuid": "abc123"}`,

	intent.ActionGeneralChat: `{
  "operation": "chat",
  "message": "the user's message, unchanged"
}`,
}

// ExtractParams asks the model for the tool parameters that text implies for
// action. The reply must be a JSON object.
func (c *Client) ExtractParams(ctx context.Context, text string, action intent.Action) (map[string]any, error) {
	schema, ok := paramSchemas[action]
	if !ok {
		return nil, fmt.Errorf("no parameter schema for action %q", action)
	}

	system := "The user wants to perform a " + string(action) + " operation. Based on their input, extract the parameters needed.\n\n" +
		"Respond with ONLY a JSON object with these fields, omitting any that do not apply:\n" + schema

	reply, err := c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}, Options{Temperature: 0.1, MaxTokens: 300})
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &params); err != nil {
		return nil, fmt.Errorf("failed to parse %s parameters: %w", action, err)
	}
	return params, nil
}

// FormatResult asks the model to present a tool result as an answer to text.
func (c *Client) FormatResult(ctx context.Context, text string, action intent.Action, result any) (string, error) {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	system := "You are a data analyst assistant. Present " + string(action) + " results clearly and answer any analytical questions based on the data.\n\n" +
		"Original user question: '" + text + "'"

	return c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: "Based on this result, please respond to the user's request:\n" + string(raw)},
	}, Options{Temperature: 0.3, MaxTokens: 1000})
}
