package dynamo

import (
	"context"
	"fmt"
	"strings"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	TableToolName    = "dynamodb_query"
	defaultScanLimit = 100
)

var tableOperations = []string{"list_tables", "describe", "query", "scan", "get_item"}

var sortConditions = map[string]string{
	"eq":          "#sk = :sk",
	"lt":          "#sk < :sk",
	"lte":         "#sk <= :sk",
	"gt":          "#sk > :sk",
	"gte":         "#sk >= :sk",
	"begins_with": "begins_with(#sk, :sk)",
}

var filterConditions = map[string]string{
	"eq":       "#attr = :val",
	"ne":       "#attr <> :val",
	"lt":       "#attr < :val",
	"lte":      "#attr <= :val",
	"gt":       "#attr > :val",
	"gte":      "#attr >= :val",
	"contains": "contains(#attr, :val)",
}

type describeParams struct {
	TableName string `json:"table_name" validate:"required"`
}

type queryParams struct {
	TableName      string `json:"table_name" validate:"required"`
	PartitionKey   string `json:"partition_key" validate:"required"`
	PartitionValue any    `json:"partition_value" validate:"required"`
	SortKey        string `json:"sort_key"`
	SortValue      any    `json:"sort_value"`
	Comparison     string `json:"comparison" validate:"omitempty,oneof=eq lt lte gt gte begins_with"`
	Limit          int    `json:"limit" validate:"min=0,max=1000"`
}

type scanParams struct {
	TableName      string `json:"table_name" validate:"required"`
	AttributeName  string `json:"attribute_name"`
	AttributeValue any    `json:"attribute_value"`
	Comparison     string `json:"comparison" validate:"omitempty,oneof=eq ne lt lte gt gte contains"`
	Limit          int    `json:"limit" validate:"min=0,max=1000"`
}

type getItemParams struct {
	TableName string         `json:"table_name" validate:"required"`
	Key       map[string]any `json:"key" validate:"required,min=1"`
}

// ItemsResult is the response of query and scan.
type ItemsResult struct {
	TableName string           `json:"table_name"`
	Count     int              `json:"count"`
	Items     []map[string]any `json:"items"`
}

// TableTool lets the orchestrator run read-only table operations.
type TableTool struct {
	api API
}

func NewTableTool(api API) *TableTool {
	return &TableTool{api: api}
}

func (t *TableTool) Name() string { return TableToolName }

func (t *TableTool) Description() string {
	return "Read from key-value tables: list tables, describe a table, query by partition/sort key, scan with a filter, or get a single item."
}

func (t *TableTool) Operations() []string { return append([]string(nil), tableOperations...) }

func (t *TableTool) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "list_tables":
		return t.listTables(ctx)
	case "describe":
		var p describeParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.describe(ctx, p.TableName)
	case "query":
		var p queryParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.query(ctx, p)
	case "scan":
		var p scanParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.scan(ctx, p)
	case "get_item":
		var p getItemParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.getItem(ctx, p)
	default:
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: %s", operation, strings.Join(tableOperations, ", ")), nil)
	}
}

func (t *TableTool) listTables(ctx context.Context) (any, error) {
	var names []string
	var start *string

	for {
		out, err := t.api.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: start})
		if err != nil {
			return nil, storeError("list tables", err)
		}
		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			break
		}
		start = out.LastEvaluatedTableName
	}

	return map[string]any{"tables": names, "count": len(names)}, nil
}

func (t *TableTool) describe(ctx context.Context, tableName string) (any, error) {
	out, err := t.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err != nil {
		return nil, storeError("describe "+tableName, err)
	}

	table := out.Table
	if table == nil {
		return nil, storeError("describe "+tableName, fmt.Errorf("empty table description"))
	}
	keys := make([]map[string]string, 0, len(table.KeySchema))
	for _, k := range table.KeySchema {
		keys = append(keys, map[string]string{
			"attribute_name": aws.ToString(k.AttributeName),
			"key_type":       string(k.KeyType),
		})
	}

	result := map[string]any{
		"table_name":   aws.ToString(table.TableName),
		"table_status": string(table.TableStatus),
		"item_count":   aws.ToInt64(table.ItemCount),
		"size_bytes":   aws.ToInt64(table.TableSizeBytes),
		"key_schema":   keys,
	}
	if table.CreationDateTime != nil {
		result["creation_date"] = table.CreationDateTime.UTC()
	}
	return result, nil
}

func (t *TableTool) query(ctx context.Context, p queryParams) (any, error) {
	pk, err := attributevalue.Marshal(p.PartitionValue)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid partition_value", err)
	}

	keyCondition := "#pk = :pk"
	names := map[string]string{"#pk": p.PartitionKey}
	values := map[string]types.AttributeValue{":pk": pk}

	if p.SortKey != "" && p.SortValue != nil {
		comparison := p.Comparison
		if comparison == "" {
			comparison = "eq"
		}
		sk, err := attributevalue.Marshal(p.SortValue)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid sort_value", err)
		}
		keyCondition += " AND " + sortConditions[comparison]
		names["#sk"] = p.SortKey
		values[":sk"] = sk
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(p.TableName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(int32(p.Limit))
	}

	out, err := t.api.Query(ctx, input)
	if err != nil {
		return nil, storeError("query "+p.TableName, err)
	}
	return itemsResult(p.TableName, out.Items)
}

func (t *TableTool) scan(ctx context.Context, p scanParams) (any, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultScanLimit
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(p.TableName),
		Limit:     aws.Int32(int32(limit)),
	}

	if p.AttributeName != "" {
		if p.AttributeValue == nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "attribute_value is required when attribute_name is set", nil)
		}
		comparison := p.Comparison
		if comparison == "" {
			comparison = "eq"
		}
		value := p.AttributeValue
		if comparison == "contains" {
			value = fmt.Sprint(value)
		}
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid attribute_value", err)
		}
		input.FilterExpression = aws.String(filterConditions[comparison])
		input.ExpressionAttributeNames = map[string]string{"#attr": p.AttributeName}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{":val": av}
	}

	out, err := t.api.Scan(ctx, input)
	if err != nil {
		return nil, storeError("scan "+p.TableName, err)
	}
	return itemsResult(p.TableName, out.Items)
}

func (t *TableTool) getItem(ctx context.Context, p getItemParams) (any, error) {
	key, err := attributevalue.MarshalMap(p.Key)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid key", err)
	}

	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.TableName),
		Key:       key,
	})
	if err != nil {
		return nil, storeError("get item from "+p.TableName, err)
	}

	if len(out.Item) == 0 {
		return map[string]any{"found": false, "item": nil}, nil
	}

	var item map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return map[string]any{"found": true, "item": item}, nil
}

func itemsResult(tableName string, raw []map[string]types.AttributeValue) (any, error) {
	var items []map[string]any
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if items == nil {
		items = []map[string]any{}
	}
	return &ItemsResult{TableName: tableName, Count: len(items), Items: items}, nil
}

func storeError(action string, err error) error {
	return appErrors.NewAppError(appErrors.CodeStoreUnavailable, "Failed to "+action, err)
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
