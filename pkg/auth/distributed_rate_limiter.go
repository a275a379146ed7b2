package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CounterAPI is the DynamoDB call the distributed limiter makes
type CounterAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DistributedRateLimiter counts requests per fixed window in the snapshot
// table, so the limit holds across Lambda instances. Counter items expire
// through the table's TTL attribute.
type DistributedRateLimiter struct {
	client CounterAPI
	table  string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewDistributedRateLimiter creates a limiter storing counters in table
func NewDistributedRateLimiter(client CounterAPI, table string, limit int, window time.Duration) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client: client,
		table:  table,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow increments key's counter unless it already reached the limit. A
// DynamoDB failure lets the request through and reports the error.
func (l *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	start := l.now().Truncate(l.window)
	end := start.Add(l.window)

	_, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("RATELIMIT#%s#%d", key, start.Unix())},
			"SK": &types.AttributeValueMemberS{Value: "COUNTER"},
		},
		UpdateExpression:    aws.String("SET #count = if_not_exists(#count, :zero) + :one, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
			"#ttl":   "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(l.limit)},
			":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(end.Add(time.Hour).Unix(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return true, fmt.Errorf("rate limiter failing open: %w", err)
	}
	return true, nil
}
