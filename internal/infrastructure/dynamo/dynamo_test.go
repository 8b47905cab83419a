package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"intent-orchestrator/internal/domain/freshness"
	appErrors "intent-orchestrator/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDynamoAPI is a mock implementation of API
type MockDynamoAPI struct {
	mock.Mock
}

func (m *MockDynamoAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *MockDynamoAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ScanOutput), args.Error(1)
}

func (m *MockDynamoAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *MockDynamoAPI) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ListTablesOutput), args.Error(1)
}

func (m *MockDynamoAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DescribeTableOutput), args.Error(1)
}

func TestNewFreshnessStoreRequiresTable(t *testing.T) {
	_, err := NewFreshnessStore(new(MockDynamoAPI), "")
	assert.Error(t, err)
}

func TestGetLastSeen(t *testing.T) {
	tests := []struct {
		name     string
		items    []map[string]types.AttributeValue
		queryErr error
		wantNil  bool
		wantRaw  *string
		wantErr  bool
	}{
		{
			name:    "number attribute",
			items:   []map[string]types.AttributeValue{{lastSeenAttr: &types.AttributeValueMemberN{Value: "1770119700"}}},
			wantRaw: aws.String("1770119700"),
		},
		{
			name:    "string attribute",
			items:   []map[string]types.AttributeValue{{lastSeenAttr: &types.AttributeValueMemberS{Value: "not-a-number"}}},
			wantRaw: aws.String("not-a-number"),
		},
		{
			name:  "missing attribute",
			items: []map[string]types.AttributeValue{{deviceKeyAttr: &types.AttributeValueMemberS{Value: "abc"}}},
		},
		{
			name:  "null attribute",
			items: []map[string]types.AttributeValue{{lastSeenAttr: &types.AttributeValueMemberNULL{Value: true}}},
		},
		{
			name:    "unexpected type",
			items:   []map[string]types.AttributeValue{{lastSeenAttr: &types.AttributeValueMemberBOOL{Value: true}}},
			wantRaw: aws.String(unsupportedType),
		},
		{
			name:    "no record",
			items:   []map[string]types.AttributeValue{},
			wantNil: true,
		},
		{
			name:     "backend failure",
			queryErr: errors.New("ProvisionedThroughputExceededException"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockDynamoAPI)
			matcher := mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
				sid := in.ExpressionAttributeValues[":sid"].(*types.AttributeValueMemberS)
				uid := in.ExpressionAttributeValues[":uid"].(*types.AttributeValueMemberS)
				return aws.ToString(in.TableName) == "tracking" &&
					in.ExpressionAttributeNames["#sid"] == "tenant_id" &&
					in.ExpressionAttributeNames["#uid"] == "device_uuid" &&
					sid.Value == "stream-1" && uid.Value == "abc" &&
					aws.ToInt32(in.Limit) == 1
			})
			if tt.queryErr != nil {
				api.On("Query", mock.Anything, matcher).Return(nil, tt.queryErr)
			} else {
				api.On("Query", mock.Anything, matcher).Return(&dynamodb.QueryOutput{Items: tt.items}, nil)
			}

			store, err := NewFreshnessStore(api, "tracking")
			require.NoError(t, err)

			record, err := store.GetLastSeen(context.Background(), "stream-1", "abc")

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, freshness.ErrStoreUnavailable)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, record)
				return
			}
			require.NotNil(t, record)
			assert.Equal(t, "stream-1", record.StreamID)
			assert.Equal(t, "abc", record.TelemetryID)
			assert.Equal(t, tt.wantRaw, record.LastSeen)
			api.AssertExpectations(t)
		})
	}
}

func TestTableToolQueryWithSortKey(t *testing.T) {
	api := new(MockDynamoAPI)
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.KeyConditionExpression) == "#pk = :pk AND begins_with(#sk, :sk)" &&
			in.ExpressionAttributeNames["#pk"] == "tenant_id" &&
			in.ExpressionAttributeNames["#sk"] == "device_uuid" &&
			aws.ToInt32(in.Limit) == 5
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"tenant_id": &types.AttributeValueMemberS{Value: "t1"}, "last_timestamp": &types.AttributeValueMemberN{Value: "42"}},
	}}, nil)

	out, err := NewTableTool(api).Process(context.Background(), "query", map[string]any{
		"table_name":      "tracking",
		"partition_key":   "tenant_id",
		"partition_value": "t1",
		"sort_key":        "device_uuid",
		"sort_value":      "ab",
		"comparison":      "begins_with",
		"limit":           5,
	})

	require.NoError(t, err)
	result := out.(*ItemsResult)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, float64(42), result.Items[0]["last_timestamp"])
	api.AssertExpectations(t)
}

func TestTableToolScanFilter(t *testing.T) {
	api := new(MockDynamoAPI)
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		val, ok := in.ExpressionAttributeValues[":val"].(*types.AttributeValueMemberS)
		return aws.ToString(in.FilterExpression) == "contains(#attr, :val)" &&
			in.ExpressionAttributeNames["#attr"] == "name" &&
			ok && val.Value == "7" &&
			aws.ToInt32(in.Limit) == defaultScanLimit
	})).Return(&dynamodb.ScanOutput{}, nil)

	out, err := NewTableTool(api).Process(context.Background(), "scan", map[string]any{
		"table_name":      "devices",
		"attribute_name":  "name",
		"attribute_value": 7,
		"comparison":      "contains",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, out.(*ItemsResult).Count)
	assert.NotNil(t, out.(*ItemsResult).Items)
	api.AssertExpectations(t)
}

func TestTableToolListTablesPaginates(t *testing.T) {
	api := new(MockDynamoAPI)
	api.On("ListTables", mock.Anything, &dynamodb.ListTablesInput{}).
		Return(&dynamodb.ListTablesOutput{TableNames: []string{"a", "b"}, LastEvaluatedTableName: aws.String("b")}, nil)
	api.On("ListTables", mock.Anything, &dynamodb.ListTablesInput{ExclusiveStartTableName: aws.String("b")}).
		Return(&dynamodb.ListTablesOutput{TableNames: []string{"c"}}, nil)

	out, err := NewTableTool(api).Process(context.Background(), "list_tables", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.(map[string]any)["tables"])
	api.AssertExpectations(t)
}

func TestTableToolDescribe(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	api := new(MockDynamoAPI)
	api.On("DescribeTable", mock.Anything, mock.Anything).Return(&dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:        aws.String("tracking"),
		TableStatus:      types.TableStatusActive,
		ItemCount:        aws.Int64(12),
		CreationDateTime: &created,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("tenant_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("device_uuid"), KeyType: types.KeyTypeRange},
		},
	}}, nil)

	out, err := NewTableTool(api).Process(context.Background(), "describe", map[string]any{"table_name": "tracking"})

	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "ACTIVE", result["table_status"])
	assert.Equal(t, int64(12), result["item_count"])
	assert.Len(t, result["key_schema"], 2)
}

func TestTableToolGetItem(t *testing.T) {
	api := new(MockDynamoAPI)
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{"tenant_id": &types.AttributeValueMemberS{Value: "t1"}},
	}, nil).Once()
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()
	tool := NewTableTool(api)
	params := map[string]any{"table_name": "tracking", "key": map[string]any{"tenant_id": "t1", "device_uuid": "abc"}}

	out, err := tool.Process(context.Background(), "get_item", params)
	require.NoError(t, err)
	assert.Equal(t, true, out.(map[string]any)["found"])

	out, err = tool.Process(context.Background(), "get_item", params)
	require.NoError(t, err)
	assert.Equal(t, false, out.(map[string]any)["found"])
}

func TestTableToolErrors(t *testing.T) {
	api := new(MockDynamoAPI)
	api.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDeniedException"))
	tool := NewTableTool(api)
	ctx := context.Background()

	out, err := tool.Process(ctx, "scan", map[string]any{"table_name": "x"})
	assert.Nil(t, out)
	assert.Equal(t, appErrors.CodeStoreUnavailable, appErrors.CodeOf(err))

	_, err = tool.Process(ctx, "query", map[string]any{"table_name": "x"})
	assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))

	_, err = tool.Process(ctx, "query", map[string]any{
		"table_name": "x", "partition_key": "k", "partition_value": "v", "comparison": "like",
	})
	assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))

	_, err = tool.Process(ctx, "drop_table", nil)
	assert.Equal(t, appErrors.CodeUnsupportedOperation, appErrors.CodeOf(err))
}
