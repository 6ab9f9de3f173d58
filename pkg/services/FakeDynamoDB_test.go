package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

/*
fakeDynamoDB keeps tables in memory. Query and Scan understand the
single equality expressions the services issue. When pageSize is set,
results are split into pages joined by LastEvaluatedKey. A table listed
in creating reports CREATING for that many DescribeTable calls before it
turns ACTIVE.
*/
type fakeDynamoDB struct {
	sync.Mutex
	tables   map[string]*fakeTable
	pageSize int
	calls    map[string]int
	creating map[string]int
	getItems []dynamodb.GetItemInput
}

type fakeTable struct {
	keys  []string
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{
		tables:   map[string]*fakeTable{},
		calls:    map[string]int{},
		creating: map[string]int{},
	}
}

func (f *fakeDynamoDB) createTable(name string, keys ...string) {
	f.Lock()
	defer f.Unlock()

	f.tables[name] = &fakeTable{
		keys:  keys,
		items: map[string]map[string]types.AttributeValue{},
	}
}

func (f *fakeDynamoDB) table(name *string) (*fakeTable, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(name))}
	}

	return t, nil
}

func (t *fakeTable) keyOf(item map[string]types.AttributeValue) string {
	parts := []string{}

	for _, k := range t.keys {
		parts = append(parts, stringAttribute(item, k))
	}

	return strings.Join(parts, "\x00")
}

func (t *fakeTable) sortedKeys() []string {
	result := []string{}

	for k := range t.items {
		result = append(result, k)
	}

	sort.Strings(result)
	return result
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := map[string]types.AttributeValue{}

	for k, v := range item {
		result[k] = v
	}

	return result
}

func (f *fakeDynamoDB) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.Lock()
	f.calls["CreateTable"]++

	if _, ok := f.tables[aws.ToString(params.TableName)]; ok {
		f.Unlock()
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}

	f.Unlock()

	keys := []string{}

	for _, k := range params.KeySchema {
		keys = append(keys, aws.ToString(k.AttributeName))
	}

	f.createTable(aws.ToString(params.TableName), keys...)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamoDB) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.Lock()
	defer f.Unlock()

	f.calls["DescribeTable"]++

	if _, err := f.table(params.TableName); err != nil {
		return nil, err
	}

	status := types.TableStatusActive

	if f.creating[aws.ToString(params.TableName)] > 0 {
		f.creating[aws.ToString(params.TableName)]--
		status = types.TableStatusCreating
	}

	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableName: params.TableName, TableStatus: status},
	}, nil
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.Lock()
	defer f.Unlock()

	f.getItems = append(f.getItems, *params)

	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}

	item, ok := t.items[t.keyOf(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}

	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.Lock()
	defer f.Unlock()

	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}

	for _, k := range t.keys {
		if stringAttribute(params.Item, k) == "" {
			return nil, fmt.Errorf("missing key attribute %s", k)
		}
	}

	t.items[t.keyOf(params.Item)] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.Lock()
	defer f.Unlock()

	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}

	delete(t.items, t.keyOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.Lock()
	defer f.Unlock()

	f.calls["Query"]++

	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}

	attr, value := parseEquality(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	items, last := t.page(attr, value, params.ExclusiveStartKey, f.pageSize)

	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.Lock()
	defer f.Unlock()

	f.calls["Scan"]++

	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}

	attr, value := parseEquality(aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	items, last := t.page(attr, value, params.ExclusiveStartKey, f.pageSize)

	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (t *fakeTable) page(attr, value string, start map[string]types.AttributeValue, pageSize int) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	items := []map[string]types.AttributeValue{}
	startKey := ""

	if len(start) > 0 {
		startKey = t.keyOf(start)
	}

	for _, k := range t.sortedKeys() {
		if startKey != "" && k <= startKey {
			continue
		}

		item := t.items[k]

		if stringAttribute(item, attr) != value {
			continue
		}

		items = append(items, copyItem(item))

		if pageSize > 0 && len(items) == pageSize {
			last := map[string]types.AttributeValue{}

			for _, key := range t.keys {
				last[key] = item[key]
			}

			return items, last
		}
	}

	return items, nil
}

// parseEquality reads "attr = :value" or "#alias = :value".
func parseEquality(expression string, names map[string]string, values map[string]types.AttributeValue) (string, string) {
	parts := strings.SplitN(expression, "=", 2)
	attr := strings.TrimSpace(parts[0])
	placeholder := strings.TrimSpace(parts[1])

	if alias, ok := names[attr]; ok {
		attr = alias
	}

	return attr, stringAttribute(values, placeholder)
}
