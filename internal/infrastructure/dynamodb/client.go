package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// API is the subset of the DynamoDB client the repositories use.
type API interface {
	PutItem(ctx context.Context, in *awsv2dynamodb.PutItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *awsv2dynamodb.GetItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *awsv2dynamodb.UpdateItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *awsv2dynamodb.QueryInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.QueryOutput, error)
}

type Client struct {
	db        API
	tableName string
	tracing   bool
}

// NewClient connects to the table using the default AWS credential chain.
// With tracing on, every call runs in its own X-Ray subsegment.
func NewClient(ctx context.Context, region, tableName string, tracing bool) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	if tracing {
		awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	}
	return &Client{db: awsv2dynamodb.NewFromConfig(cfg), tableName: tableName, tracing: tracing}, nil
}

// NewClientWithAPI wraps an already configured DynamoDB API.
func NewClientWithAPI(db API, tableName string) *Client {
	return &Client{db: db, tableName: tableName}
}

func (c *Client) capture(ctx context.Context, name string, fn func(context.Context) error) error {
	if !c.tracing {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}

func (c *Client) table() *string { return aws.String(c.tableName) }

// queryAll follows LastEvaluatedKey until the partition is exhausted.
func (c *Client) queryAll(ctx context.Context, segment string, in *awsv2dynamodb.QueryInput) ([]map[string]awsv2types.AttributeValue, error) {
	var items []map[string]awsv2types.AttributeValue
	for {
		var out *awsv2dynamodb.QueryOutput
		err := c.capture(ctx, segment, func(ctx context.Context) error {
			var e error
			out, e = c.db.Query(ctx, in)
			return e
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

const (
	applicationPK = "APPLICATION"
	rolePK        = "ROLE"
	userPK        = "USER"
)

func appSK(appID string) string        { return "APP#" + appID }
func localRoleSK(roleID string) string { return "LOCAL#" + roleID }
func userSK(userID string) string      { return "USER#" + userID }

// syncedRoleSK makes (AppType, ExternalID) the item key, so a synced role
// can only ever exist once.
func syncedRoleSK(appType, externalID string) string {
	return "EXT#" + appType + "#" + externalID
}

func key(pk, sk string) map[string]awsv2types.AttributeValue {
	return map[string]awsv2types.AttributeValue{
		"PK": &awsv2types.AttributeValueMemberS{Value: pk},
		"SK": &awsv2types.AttributeValueMemberS{Value: sk},
	}
}

func partition(pk string) *awsv2dynamodb.QueryInput {
	return &awsv2dynamodb.QueryInput{
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
			":pk": &awsv2types.AttributeValueMemberS{Value: pk},
		},
	}
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}
