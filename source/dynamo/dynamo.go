package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/rowcache"
	"github.com/hupe1980/rowcache/codec"
)

// Client is the interface for DynamoDB operations.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// KeySchema names the table attributes addressing a dataset's rows.
type KeySchema struct {
	// PartitionAttr is the partition key attribute, e.g. "dataset".
	PartitionAttr string
	// PartitionValue selects the dataset within the table.
	PartitionValue string
	// IndexAttr is the numeric sort key holding the absolute row index.
	IndexAttr string
}

// DecodeFunc converts one DynamoDB item into a row.
type DecodeFunc[T any] func(item map[string]types.AttributeValue) (T, error)

// JSONAttribute returns a DecodeFunc reading a row from a single
// string attribute holding the encoded payload. A nil codec means
// codec.Default.
func JSONAttribute[T any](attr string, c codec.Codec) DecodeFunc[T] {
	if c == nil {
		c = codec.Default
	}
	return func(item map[string]types.AttributeValue) (T, error) {
		var row T
		payload, ok := item[attr].(*types.AttributeValueMemberS)
		if !ok {
			return row, fmt.Errorf("missing or non-string attribute %q", attr)
		}
		if err := c.Unmarshal([]byte(payload.Value), &row); err != nil {
			return row, fmt.Errorf("failed to decode attribute %q: %w", attr, err)
		}
		return row, nil
	}
}

// Source reads rows from a DynamoDB table, one item per row.
type Source[T any] struct {
	client Client
	table  string
	keys   KeySchema
	decode DecodeFunc[T]
}

var _ rowcache.Datasource[int] = (*Source[int])(nil)

// NewSource creates a source querying table with the given key schema.
func NewSource[T any](client Client, table string, keys KeySchema, decode DecodeFunc[T]) *Source[T] {
	return &Source[T]{
		client: client,
		table:  table,
		keys:   keys,
		decode: decode,
	}
}

// Fetch queries the rows in [startRow, endRow). The sort key is expected to
// be dense and 0-based, so a dataset ending inside the range reads as a
// short page.
func (s *Source[T]) Fetch(ctx context.Context, startRow, endRow int) ([]T, error) {
	if startRow < 0 {
		startRow = 0
	}
	if endRow <= startRow {
		return nil, nil
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#p = :p AND #i BETWEEN :a AND :b"),
		ExpressionAttributeNames: map[string]string{
			"#p": s.keys.PartitionAttr,
			"#i": s.keys.IndexAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: s.keys.PartitionValue},
			":a": &types.AttributeValueMemberN{Value: strconv.Itoa(startRow)},
			":b": &types.AttributeValueMemberN{Value: strconv.Itoa(endRow - 1)},
		},
	}

	items := make([]T, 0, endRow-startRow)
	for {
		resp, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query rows [%d,%d): %w", startRow, endRow, err)
		}

		for _, item := range resp.Items {
			row, err := s.decode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, row)
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
	return items, nil
}
