package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
)

type fakeClient struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	lastGet  *dynamodb.GetItemInput
	lastPut  *dynamodb.PutItemInput
	failWith error
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value + "|" + key["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastGet = in
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastPut = in
	// Emulates the UpdatedAt guard on conditional puts.
	existing, ok := f.items[keyOf(in.Item)]
	if ok && in.ConditionExpression != nil &&
		stringAttr(existing, "UpdatedAt") > stringAttr(in.Item, "UpdatedAt") {
		return nil, &types.ConditionalCheckFailedException{Message: stringPtr("condition failed")}
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestMindmapArchive_StoreAndLoad(t *testing.T) {
	client := newFakeClient()
	archive := NewMindmapArchive(client, "mindmaps", zap.NewNop())
	ctx := context.Background()

	_, err := archive.Load(ctx, "m1")
	assert.ErrorIs(t, err, ports.ErrArchiveMiss)

	m := entities.NewMindmapFromTemplate("m1", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, archive.Store(ctx, m))

	stored := client.items["MINDMAP#m1|SNAPSHOT"]
	require.NotNil(t, stored)
	assert.Equal(t, "MINDMAP", stored["EntityType"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "10", stored["NodeCount"].(*types.AttributeValueMemberN).Value)

	loaded, err := archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, m.Title, loaded.Title)
	assert.True(t, m.CreatedAt.Equal(loaded.CreatedAt))
	assert.Len(t, loaded.Nodes, len(m.Nodes))
	assert.Nil(t, loaded.Nodes[m.RootID].ParentID)
	assert.Equal(t, m.Nodes["goals"].Children, loaded.Nodes["goals"].Children)
	assert.NoError(t, loaded.CheckConsistency())

	require.NotNil(t, client.lastGet.ProjectionExpression)
	assert.Contains(t, client.lastGet.ExpressionAttributeNames, "#0")
	assert.Equal(t, "Document", client.lastGet.ExpressionAttributeNames["#0"])
}

func TestMindmapArchive_KeepsNewerSnapshot(t *testing.T) {
	client := newFakeClient()
	archive := NewMindmapArchive(client, "mindmaps", zap.NewNop())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	newer := entities.NewMindmapFromTemplate("m1", base)
	newer.UpdatedAt = base.Add(1500 * time.Millisecond)
	newer.Title = "Newer"
	require.NoError(t, archive.Store(ctx, newer))

	put := client.lastPut
	require.NotNil(t, put.ConditionExpression)
	assert.Contains(t, *put.ConditionExpression, "attribute_not_exists")
	assert.ElementsMatch(t, []string{"PK", "UpdatedAt"}, valuesOf(put.ExpressionAttributeNames))
	require.Len(t, put.ExpressionAttributeValues, 1)

	older := entities.NewMindmapFromTemplate("m1", base)
	older.UpdatedAt = base.Add(time.Second)
	older.Title = "Older"
	require.NoError(t, archive.Store(ctx, older))

	loaded, err := archive.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Newer", loaded.Title)
	assert.Equal(t, "2025-03-01T12:00:01.500000000Z", stringAttr(client.items["MINDMAP#m1|SNAPSHOT"], "UpdatedAt"))
}

func TestMindmapArchive_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType pkgerrors.ErrorType
	}{
		{name: "throttled", err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, wantType: pkgerrors.ErrorTypeRateLimit},
		{name: "missing table", err: &types.ResourceNotFoundException{Message: stringPtr("no table")}, wantType: pkgerrors.ErrorTypeUnavailable},
		{name: "other api error", err: &smithy.GenericAPIError{Code: "ValidationException"}, wantType: pkgerrors.ErrorTypeExternal},
		{name: "transport", err: errors.New("connection reset"), wantType: pkgerrors.ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			client.failWith = tt.err
			archive := NewMindmapArchive(client, "mindmaps", zap.NewNop())

			_, err := archive.Load(context.Background(), "m1")
			assert.True(t, pkgerrors.IsType(err, tt.wantType), "got %v", err)
			assert.ErrorIs(t, err, tt.err)

			assert.Error(t, archive.Ping(context.Background()))
		})
	}
}

func stringPtr(s string) *string { return &s }

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func valuesOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
