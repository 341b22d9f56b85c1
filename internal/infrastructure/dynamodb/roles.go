package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"security-console/internal/domain"
)

type roleItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	ID          string   `dynamodbav:"ID"`
	Name        string   `dynamodbav:"Name"`
	Description string   `dynamodbav:"Description,omitempty"`
	Permissions []string `dynamodbav:"Permissions"`
	AppType     string   `dynamodbav:"AppType,omitempty"`
	ExternalID  string   `dynamodbav:"ExternalID,omitempty"`
	IsSynced    bool     `dynamodbav:"IsSynced"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
}

func (i roleItem) toDomain() domain.Role {
	perms := i.Permissions
	if perms == nil {
		perms = []string{}
	}
	return domain.Role{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		Permissions: perms,
		AppType:     domain.AppType(i.AppType),
		ExternalID:  i.ExternalID,
		IsSynced:    i.IsSynced,
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
}

type RoleRepository struct{ client *Client }

func NewRoleRepository(client *Client) *RoleRepository {
	return &RoleRepository{client: client}
}

func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	av, err := attributevalue.MarshalMap(roleItem{
		PK:          rolePK,
		SK:          localRoleSK(role.ID),
		EntityType:  "ROLE",
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: role.Permissions,
		AppType:     string(role.AppType),
		CreatedAt:   formatTime(role.CreatedAt),
		UpdatedAt:   formatTime(role.UpdatedAt),
	})
	if err != nil {
		return err
	}
	return r.client.capture(ctx, "DynamoDB.PutRole", func(ctx context.Context) error {
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

// UpsertSynced is a single UpdateItem on the (AppType, ExternalID) key. The
// first write sets ID and CreatedAt; later writes keep them. ALL_OLD tells
// the two cases apart.
func (r *RoleRepository) UpsertSynced(ctx context.Context, role domain.Role) (domain.UpsertOutcome, error) {
	if !role.External() {
		return 0, fmt.Errorf("synced role without app type or external id: %w", domain.ErrInvalidInput)
	}
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	permsAV, err := attributevalue.Marshal(perms)
	if err != nil {
		return 0, err
	}
	var out *awsv2dynamodb.UpdateItemOutput
	err = r.client.capture(ctx, "DynamoDB.UpsertSyncedRole", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName: r.client.table(),
			Key:       key(rolePK, syncedRoleSK(string(role.AppType), role.ExternalID)),
			UpdateExpression: aws.String("SET #id = if_not_exists(#id, :id), #c = if_not_exists(#c, :now), " +
				"#e = :e, #n = :n, #d = :d, #p = :p, #t = :t, #x = :x, #s = :s, #u = :now"),
			ExpressionAttributeNames: map[string]string{
				"#id": "ID",
				"#c":  "CreatedAt",
				"#e":  "EntityType",
				"#n":  "Name",
				"#d":  "Description",
				"#p":  "Permissions",
				"#t":  "AppType",
				"#x":  "ExternalID",
				"#s":  "IsSynced",
				"#u":  "UpdatedAt",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":id":  &awsv2types.AttributeValueMemberS{Value: role.ID},
				":now": &awsv2types.AttributeValueMemberS{Value: formatTime(role.UpdatedAt)},
				":e":   &awsv2types.AttributeValueMemberS{Value: "ROLE"},
				":n":   &awsv2types.AttributeValueMemberS{Value: role.Name},
				":d":   &awsv2types.AttributeValueMemberS{Value: role.Description},
				":p":   permsAV,
				":t":   &awsv2types.AttributeValueMemberS{Value: string(role.AppType)},
				":x":   &awsv2types.AttributeValueMemberS{Value: role.ExternalID},
				":s":   &awsv2types.AttributeValueMemberBOOL{Value: true},
			},
			ReturnValues: awsv2types.ReturnValueAllOld,
		})
		return e
	})
	if err != nil {
		return 0, err
	}
	if len(out.Attributes) == 0 {
		return domain.Inserted, nil
	}
	return domain.Updated, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	in := partition(rolePK)
	in.TableName = r.client.table()
	items, err := r.client.queryAll(ctx, "DynamoDB.QueryRoles", in)
	if err != nil {
		return nil, err
	}
	var raw []roleItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(raw))
	for _, item := range raw {
		roles = append(roles, item.toDomain())
	}
	return roles, nil
}
