package dynamodb

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"security-console/internal/domain"
)

type applicationItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	ID           string `dynamodbav:"ID"`
	Name         string `dynamodbav:"Name"`
	Type         string `dynamodbav:"AppType"`
	Module       string `dynamodbav:"Module"`
	RedirectURL  string `dynamodbav:"RedirectURL"`
	IP           string `dynamodbav:"IP,omitempty"`
	Username     string `dynamodbav:"Username,omitempty"`
	Password     string `dynamodbav:"Password,omitempty"`
	APIKey       string `dynamodbav:"APIKey,omitempty"`
	Description  string `dynamodbav:"Description,omitempty"`
	DefaultPort  int    `dynamodbav:"DefaultPort"`
	Active       bool   `dynamodbav:"Active"`
	LastRoleSync string `dynamodbav:"LastRoleSync,omitempty"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
}

func toApplicationItem(app domain.Application) applicationItem {
	item := applicationItem{
		PK:          applicationPK,
		SK:          appSK(app.ID),
		EntityType:  "APPLICATION",
		ID:          app.ID,
		Name:        app.Name,
		Type:        string(app.Type),
		Module:      string(app.Module),
		RedirectURL: app.RedirectURL,
		IP:          app.IP,
		Username:    app.Username,
		Password:    app.Password,
		APIKey:      app.APIKey,
		Description: app.Description,
		DefaultPort: app.DefaultPort,
		Active:      app.Active,
		CreatedAt:   formatTime(app.CreatedAt),
		UpdatedAt:   formatTime(app.UpdatedAt),
	}
	if app.LastRoleSync != nil {
		item.LastRoleSync = formatTime(*app.LastRoleSync)
	}
	return item
}

func (i applicationItem) toDomain() domain.Application {
	app := domain.Application{
		ID:          i.ID,
		Name:        i.Name,
		Type:        domain.AppType(i.Type),
		Module:      domain.ModuleType(i.Module),
		RedirectURL: i.RedirectURL,
		IP:          i.IP,
		Username:    i.Username,
		Password:    i.Password,
		APIKey:      i.APIKey,
		Description: i.Description,
		DefaultPort: i.DefaultPort,
		Active:      i.Active,
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
	if i.LastRoleSync != "" {
		t := parseTime(i.LastRoleSync)
		app.LastRoleSync = &t
	}
	return app
}

type ApplicationRepository struct{ client *Client }

func NewApplicationRepository(client *Client) *ApplicationRepository {
	return &ApplicationRepository{client: client}
}

func (r *ApplicationRepository) Create(ctx context.Context, app domain.Application) error {
	av, err := attributevalue.MarshalMap(toApplicationItem(app))
	if err != nil {
		return err
	}
	return r.client.capture(ctx, "DynamoDB.PutApplication", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           r.client.table(),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrConflict
		}
		return err
	})
}

// Update rewrites the mutable attributes. LastRoleSync and CreatedAt are
// owned by SetLastSync and Create.
func (r *ApplicationRepository) Update(ctx context.Context, app domain.Application) error {
	item := toApplicationItem(app)
	return r.client.capture(ctx, "DynamoDB.UpdateApplication", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName: r.client.table(),
			Key:       key(item.PK, item.SK),
			UpdateExpression: aws.String("SET #n = :n, #t = :t, #m = :m, #url = :url, #ip = :ip, #user = :user, " +
				"#pw = :pw, #key = :key, #d = :d, #port = :port, #active = :active, #u = :u"),
			ExpressionAttributeNames: map[string]string{
				"#n":      "Name",
				"#t":      "AppType",
				"#m":      "Module",
				"#url":    "RedirectURL",
				"#ip":     "IP",
				"#user":   "Username",
				"#pw":     "Password",
				"#key":    "APIKey",
				"#d":      "Description",
				"#port":   "DefaultPort",
				"#active": "Active",
				"#u":      "UpdatedAt",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":n":      &awsv2types.AttributeValueMemberS{Value: item.Name},
				":t":      &awsv2types.AttributeValueMemberS{Value: item.Type},
				":m":      &awsv2types.AttributeValueMemberS{Value: item.Module},
				":url":    &awsv2types.AttributeValueMemberS{Value: item.RedirectURL},
				":ip":     &awsv2types.AttributeValueMemberS{Value: item.IP},
				":user":   &awsv2types.AttributeValueMemberS{Value: item.Username},
				":pw":     &awsv2types.AttributeValueMemberS{Value: item.Password},
				":key":    &awsv2types.AttributeValueMemberS{Value: item.APIKey},
				":d":      &awsv2types.AttributeValueMemberS{Value: item.Description},
				":port":   &awsv2types.AttributeValueMemberN{Value: strconv.Itoa(item.DefaultPort)},
				":active": &awsv2types.AttributeValueMemberBOOL{Value: item.Active},
				":u":      &awsv2types.AttributeValueMemberS{Value: item.UpdatedAt},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}

func (r *ApplicationRepository) SetLastSync(ctx context.Context, appID string, at time.Time) error {
	return r.client.capture(ctx, "DynamoDB.SetLastRoleSync", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName:        r.client.table(),
			Key:              key(applicationPK, appSK(appID)),
			UpdateExpression: aws.String("SET #ls = :ls, #u = :ls"),
			ExpressionAttributeNames: map[string]string{
				"#ls": "LastRoleSync",
				"#u":  "UpdatedAt",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":ls": &awsv2types.AttributeValueMemberS{Value: formatTime(at)},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}

func (r *ApplicationRepository) GetByID(ctx context.Context, appID string) (domain.Application, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := r.client.capture(ctx, "DynamoDB.GetApplication", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: r.client.table(),
			Key:       key(applicationPK, appSK(appID)),
		})
		return e
	})
	if err != nil {
		return domain.Application{}, err
	}
	if out.Item == nil {
		return domain.Application{}, domain.ErrNotFound
	}
	var item applicationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.Application{}, err
	}
	return item.toDomain(), nil
}

func (r *ApplicationRepository) List(ctx context.Context) ([]domain.Application, error) {
	in := partition(applicationPK)
	in.TableName = r.client.table()
	items, err := r.client.queryAll(ctx, "DynamoDB.QueryApplications", in)
	if err != nil {
		return nil, err
	}
	var raw []applicationItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, err
	}
	apps := make([]domain.Application, 0, len(raw))
	for _, item := range raw {
		apps = append(apps, item.toDomain())
	}
	return apps, nil
}
