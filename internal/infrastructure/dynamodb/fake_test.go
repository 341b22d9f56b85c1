package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeTable is an in-memory single table. It understands the condition,
// update and filter expressions the repositories emit, and pages Query
// results to exercise LastEvaluatedKey handling.
type fakeTable struct {
	mu       sync.Mutex
	items    map[string]map[string]awsv2types.AttributeValue
	pageSize int
	queries  int
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]awsv2types.AttributeValue{}, pageSize: 2}
}

func str(av awsv2types.AttributeValue) string {
	if s, ok := av.(*awsv2types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(item map[string]awsv2types.AttributeValue) string {
	return str(item["PK"]) + "|" + str(item["SK"])
}

func copyItem(item map[string]awsv2types.AttributeValue) map[string]awsv2types.AttributeValue {
	out := make(map[string]awsv2types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func checkCondition(cond *string, exists bool) error {
	if cond == nil {
		return nil
	}
	switch {
	case strings.HasPrefix(*cond, "attribute_not_exists") && exists,
		strings.HasPrefix(*cond, "attribute_exists") && !exists:
		return &awsv2types.ConditionalCheckFailedException{Message: cond}
	}
	return nil
}

func (f *fakeTable) PutItem(_ context.Context, in *awsv2dynamodb.PutItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Item)
	_, exists := f.items[k]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	f.items[k] = copyItem(in.Item)
	return &awsv2dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, in *awsv2dynamodb.GetItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(in.Key)]
	if !ok {
		return &awsv2dynamodb.GetItemOutput{}, nil
	}
	return &awsv2dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeTable) UpdateItem(_ context.Context, in *awsv2dynamodb.UpdateItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Key)
	old, exists := f.items[k]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	next := copyItem(in.Key)
	if exists {
		next = copyItem(old)
	}
	expr := strings.TrimPrefix(*in.UpdateExpression, "SET ")
	for _, assignment := range splitTopLevel(expr) {
		lhs, rhs, ok := strings.Cut(assignment, " = ")
		if !ok {
			return nil, fmt.Errorf("fake: cannot parse %q", assignment)
		}
		attr := in.ExpressionAttributeNames[strings.TrimSpace(lhs)]
		rhs = strings.TrimSpace(rhs)
		if strings.HasPrefix(rhs, "if_not_exists(") {
			args := strings.Split(strings.TrimSuffix(strings.TrimPrefix(rhs, "if_not_exists("), ")"), ",")
			if _, has := next[in.ExpressionAttributeNames[strings.TrimSpace(args[0])]]; has {
				continue
			}
			rhs = strings.TrimSpace(args[1])
		}
		next[attr] = in.ExpressionAttributeValues[rhs]
	}
	f.items[k] = next
	out := &awsv2dynamodb.UpdateItemOutput{}
	if in.ReturnValues == awsv2types.ReturnValueAllOld && exists {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

func (f *fakeTable) Query(_ context.Context, in *awsv2dynamodb.QueryInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	pk := str(in.ExpressionAttributeValues[":pk"])
	var matched []map[string]awsv2types.AttributeValue
	for _, item := range f.items {
		if str(item["PK"]) == pk {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return str(matched[i]["SK"]) < str(matched[j]["SK"]) })

	start := 0
	if in.ExclusiveStartKey != nil {
		after := str(in.ExclusiveStartKey["SK"])
		for start < len(matched) && str(matched[start]["SK"]) <= after {
			start++
		}
	}
	end := start + f.pageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	out := &awsv2dynamodb.QueryOutput{}
	for _, item := range page {
		if in.FilterExpression != nil {
			// Only the "#name = :value" form is emitted.
			lhs, rhs, _ := strings.Cut(*in.FilterExpression, " = ")
			if str(item[in.ExpressionAttributeNames[lhs]]) != str(in.ExpressionAttributeValues[rhs]) {
				continue
			}
		}
		out.Items = append(out.Items, copyItem(item))
	}
	if end < len(matched) {
		out.LastEvaluatedKey = map[string]awsv2types.AttributeValue{
			"PK": page[len(page)-1]["PK"],
			"SK": page[len(page)-1]["SK"],
		}
	}
	return out, nil
}

func splitTopLevel(expr string) []string {
	var parts []string
	depth, last := 0, 0
	for i, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(expr[last:i]))
				last = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(expr[last:]))
}
