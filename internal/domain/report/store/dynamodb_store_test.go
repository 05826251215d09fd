// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo is an in-memory stand-in for the report_status table and its
// user_id GSI. It honours the conditional update and query pagination.
type fakeDynamo struct {
	mu         sync.Mutex
	table      string
	items      map[string]map[string]types.AttributeValue
	queryCalls int
	failWith   error
}

func newFakeDynamo(table string) *fakeDynamo {
	return &fakeDynamo{table: table, items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func cloneItem(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.items[attrS(in.Item, "report_id")] = cloneItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	item, ok := f.items[attrS(in.Key, "report_id")]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	projected := map[string]types.AttributeValue{"report_id": item["report_id"]}
	if st, ok := item["status"]; ok {
		projected["status"] = st
	}
	return &dynamodb.GetItemOutput{Item: projected}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	id := attrS(in.Key, "report_id")
	item, ok := f.items[id]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	old := cloneItem(item)
	item["status"] = in.ExpressionAttributeValues[":report_status"]
	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	owner := attrS(in.ExpressionAttributeValues, ":user_id")

	var ids []string
	for id, item := range f.items {
		if attrS(item, "user_id") == owner {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := attrS(in.ExclusiveStartKey, "report_id")
		start = sort.SearchStrings(ids, last) + 1
	}
	limit := len(ids)
	if in.Limit != nil {
		limit = int(*in.Limit)
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}

	out := &dynamodb.QueryOutput{}
	for _, id := range ids[start:end] {
		item := f.items[id]
		out.Items = append(out.Items, map[string]types.AttributeValue{
			"report_id": item["report_id"],
			"status":    item["status"],
		})
	}
	out.Count = int32(len(out.Items))
	if end < len(ids) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"report_id": &types.AttributeValueMemberS{Value: ids[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if aws.ToString(in.TableName) != f.table {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func TestDynamoStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ports.Store {
		return NewDynamoStore(newFakeDynamo("report_status"), "report_status", "UserIdIndex")
	})
}

func TestDynamoStore_ListPaginates(t *testing.T) {
	fake := newFakeDynamo("report_status")
	s := NewDynamoStore(fake, "report_status", "UserIdIndex")
	ctx := context.Background()
	owner := uuid.New()

	for i := 0; i < 2*dynamoQueryPageSize+7; i++ {
		require.NoError(t, s.InsertReport(ctx, model.NewReport(owner)))
	}

	list, err := s.ListReports(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 2*dynamoQueryPageSize+7)
	assert.Equal(t, 3, fake.queryCalls)
	for _, r := range list {
		assert.Equal(t, owner, r.UserID)
	}
}

func TestDynamoStore_SkipsMalformedRows(t *testing.T) {
	fake := newFakeDynamo("report_status")
	s := NewDynamoStore(fake, "report_status", "UserIdIndex")
	ctx := context.Background()
	owner := uuid.New()

	good := model.NewReport(owner)
	require.NoError(t, s.InsertReport(ctx, good))
	badID := uuid.New().String()
	fake.items[badID] = map[string]types.AttributeValue{
		"report_id": &types.AttributeValueMemberS{Value: badID},
		"user_id":   &types.AttributeValueMemberS{Value: owner.String()},
		"status":    &types.AttributeValueMemberS{Value: "archived"},
	}

	list, err := s.ListReports(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []model.Report{good}, list)

	_, found, err := s.GetStatus(ctx, uuid.MustParse(badID))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDynamoStore_ErrorsAreWrapped(t *testing.T) {
	fake := newFakeDynamo("report_status")
	fake.failWith = errors.New("throttled")
	s := NewDynamoStore(fake, "report_status", "UserIdIndex")
	ctx := context.Background()

	_, _, err := s.UpdateStatus(ctx, uuid.New(), model.StatusQueued)
	assert.ErrorIs(t, err, fake.failWith)
	_, err = s.ListReports(ctx, uuid.New())
	assert.ErrorIs(t, err, fake.failWith)
	assert.ErrorIs(t, s.InsertReport(ctx, model.NewReport(uuid.New())), fake.failWith)
}

func TestDynamoStore_Ping(t *testing.T) {
	fake := newFakeDynamo("report_status")
	assert.NoError(t, NewDynamoStore(fake, "report_status", "UserIdIndex").Ping(context.Background()))
	assert.Error(t, NewDynamoStore(fake, "missing", "UserIdIndex").Ping(context.Background()))
}
