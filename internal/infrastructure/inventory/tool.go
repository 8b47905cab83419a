package inventory

import (
	"context"
	"fmt"
	"strings"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"
)

const ToolName = "scc_tool"

var toolOperations = []string{"list", "find", "all", "query"}

type listParams struct {
	Limit  int    `json:"limit" validate:"min=0,max=1000"`
	Offset int    `json:"offset" validate:"min=0"`
	Filter string `json:"filter"`
}

type findParams struct {
	SearchTerm string `json:"search_term" validate:"required"`
	Limit      int    `json:"limit" validate:"min=0,max=1000"`
}

type allParams struct {
	MaxDevices int `json:"max_devices" validate:"min=0,max=10000"`
}

type queryParams struct {
	LuceneQuery string `json:"lucene_query" validate:"required"`
	Limit       int    `json:"limit" validate:"min=0,max=1000"`
	Offset      int    `json:"offset" validate:"min=0"`
}

// Tool exposes the inventory client to the orchestrator.
type Tool struct {
	client *Client
}

func NewTool(client *Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Query the device inventory: list devices, find devices by name/serial/type, fetch all devices, or run a raw Lucene query."
}

func (t *Tool) Operations() []string { return append([]string(nil), toolOperations...) }

func (t *Tool) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "list":
		var p listParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return result(t.client.List(ctx, orDefault(p.Limit, pageSize), p.Offset, BuildSearchQuery(p.Filter)))

	case "find":
		var p findParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return result(t.client.Find(ctx, p.SearchTerm, orDefault(p.Limit, pageSize)))

	case "all":
		var p allParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		devices, err := t.client.GetAll(ctx, orDefault(p.MaxDevices, 1000))
		if err != nil {
			return nil, err
		}
		return map[string]any{"total_retrieved": len(devices), "items": devices}, nil

	case "query":
		var p queryParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return result(t.client.List(ctx, orDefault(p.Limit, pageSize), p.Offset, p.LuceneQuery))

	default:
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: %s", operation, strings.Join(toolOperations, ", ")), nil)
	}
}

func decodeAndValidate(params map[string]any, out any) error {
	if err := utils.DecodeParams(params, out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
	}
	if err := utils.ValidateStruct(out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// result keeps a nil pointer from becoming a non-nil interface value.
func result[T any](v *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
