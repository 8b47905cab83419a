package dynamo

import (
	"context"
	"errors"
	"fmt"

	"intent-orchestrator/internal/domain/freshness"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	streamKeyAttr   = "tenant_id"
	deviceKeyAttr   = "device_uuid"
	lastSeenAttr    = "last_timestamp"
	unsupportedType = "<unsupported attribute type>"
)

// FreshnessStore reads last-seen rows keyed by (tenant_id, device_uuid).
type FreshnessStore struct {
	api       API
	tableName string
}

func NewFreshnessStore(api API, tableName string) (*FreshnessStore, error) {
	if tableName == "" {
		return nil, errors.New("freshness table name is not set")
	}
	return &FreshnessStore{api: api, tableName: tableName}, nil
}

func (s *FreshnessStore) GetLastSeen(ctx context.Context, streamID, telemetryID string) (*freshness.Record, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#sid = :sid AND #uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#sid": streamKeyAttr,
			"#uid": deviceKeyAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: streamID},
			":uid": &types.AttributeValueMemberS{Value: telemetryID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", freshness.ErrStoreUnavailable, s.tableName, err)
	}

	if len(out.Items) == 0 {
		return nil, nil
	}

	return &freshness.Record{
		StreamID:    streamID,
		TelemetryID: telemetryID,
		LastSeen:    rawTimestamp(out.Items[0][lastSeenAttr]),
	}, nil
}

// rawTimestamp returns the attribute's text. Unexpected types yield a value
// that will not parse as an integer.
func rawTimestamp(av types.AttributeValue) *string {
	switch v := av.(type) {
	case nil:
		return nil
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberN:
		return aws.String(v.Value)
	case *types.AttributeValueMemberS:
		return aws.String(v.Value)
	default:
		return aws.String(unsupportedType)
	}
}
