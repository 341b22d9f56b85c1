package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"security-console/internal/domain"
)

type userItem struct {
	PK           string   `dynamodbav:"PK"`
	SK           string   `dynamodbav:"SK"`
	EntityType   string   `dynamodbav:"EntityType"`
	ID           string   `dynamodbav:"ID"`
	Username     string   `dynamodbav:"Username"`
	Email        string   `dynamodbav:"Email"`
	FirstName    string   `dynamodbav:"FirstName,omitempty"`
	LastName     string   `dynamodbav:"LastName,omitempty"`
	PasswordHash string   `dynamodbav:"PasswordHash"`
	Roles        []string `dynamodbav:"Roles"`
	ModuleAccess []string `dynamodbav:"ModuleAccess"`
	IsAdmin      bool     `dynamodbav:"IsAdmin"`
	IsActive     bool     `dynamodbav:"IsActive"`
	CreatedAt    string   `dynamodbav:"CreatedAt"`
	UpdatedAt    string   `dynamodbav:"UpdatedAt"`
}

func toUserItem(u domain.User) userItem {
	modules := make([]string, 0, len(u.ModuleAccess))
	for _, m := range u.ModuleAccess {
		modules = append(modules, string(m))
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userItem{
		PK:           userPK,
		SK:           userSK(u.ID),
		EntityType:   "USER",
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Roles:        roles,
		ModuleAccess: modules,
		IsAdmin:      u.IsAdmin,
		IsActive:     u.IsActive,
		CreatedAt:    formatTime(u.CreatedAt),
		UpdatedAt:    formatTime(u.UpdatedAt),
	}
}

func (i userItem) toDomain() domain.User {
	modules := make([]domain.ModuleType, 0, len(i.ModuleAccess))
	for _, m := range i.ModuleAccess {
		modules = append(modules, domain.ModuleType(m))
	}
	roles := i.Roles
	if roles == nil {
		roles = []string{}
	}
	return domain.User{
		ID:           i.ID,
		Username:     i.Username,
		Email:        i.Email,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		PasswordHash: i.PasswordHash,
		Roles:        roles,
		ModuleAccess: modules,
		IsAdmin:      i.IsAdmin,
		IsActive:     i.IsActive,
		CreatedAt:    parseTime(i.CreatedAt),
		UpdatedAt:    parseTime(i.UpdatedAt),
	}
}

type UserRepository struct{ client *Client }

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	return r.put(ctx, "DynamoDB.PutUser", user, "attribute_not_exists(PK) AND attribute_not_exists(SK)", domain.ErrConflict)
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	return r.put(ctx, "DynamoDB.UpdateUser", user, "attribute_exists(PK)", domain.ErrNotFound)
}

func (r *UserRepository) put(ctx context.Context, segment string, user domain.User, condition string, onCondition error) error {
	av, err := attributevalue.MarshalMap(toUserItem(user))
	if err != nil {
		return err
	}
	return r.client.capture(ctx, segment, func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           r.client.table(),
			Item:                av,
			ConditionExpression: aws.String(condition),
		})
		if isConditionalCheckFailure(err) {
			return onCondition
		}
		return err
	})
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := r.client.capture(ctx, "DynamoDB.GetUser", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: r.client.table(),
			Key:       key(userPK, userSK(userID)),
		})
		return e
	})
	if err != nil {
		return domain.User{}, err
	}
	if out.Item == nil {
		return domain.User{}, domain.ErrNotFound
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.User{}, err
	}
	return item.toDomain(), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	in := partition(userPK)
	in.TableName = r.client.table()
	in.FilterExpression = aws.String("#un = :un")
	in.ExpressionAttributeNames = map[string]string{"#un": "Username"}
	in.ExpressionAttributeValues[":un"] = &awsv2types.AttributeValueMemberS{Value: username}
	users, err := r.query(ctx, "DynamoDB.QueryUserByName", in)
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return users[0], nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	in := partition(userPK)
	in.TableName = r.client.table()
	return r.query(ctx, "DynamoDB.QueryUsers", in)
}

func (r *UserRepository) query(ctx context.Context, segment string, in *awsv2dynamodb.QueryInput) ([]domain.User, error) {
	items, err := r.client.queryAll(ctx, segment, in)
	if err != nil {
		return nil, err
	}
	var raw []userItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(raw))
	for _, item := range raw {
		users = append(users, item.toDomain())
	}
	return users, nil
}
