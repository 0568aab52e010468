// Package dynamodb keeps mindmap snapshots in a DynamoDB table.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/utils"
)

const (
	snapshotSK = "SNAPSHOT"
	entityType = "MINDMAP"
)

// Client is the subset of the DynamoDB API the archive uses
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// mindmapItem is the table layout: one item per mindmap
type mindmapItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	EntityType string            `dynamodbav:"EntityType"`
	Title      string            `dynamodbav:"Title"`
	NodeCount  int               `dynamodbav:"NodeCount"`
	Document   *entities.Mindmap `dynamodbav:"Document"`
	UpdatedAt  string            `dynamodbav:"UpdatedAt"`
}

// MindmapArchive implements ports.MindmapArchive on DynamoDB
type MindmapArchive struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

var _ ports.MindmapArchive = (*MindmapArchive)(nil)

// NewMindmapArchive creates a new archive over tableName
func NewMindmapArchive(client Client, tableName string, logger *zap.Logger) *MindmapArchive {
	return &MindmapArchive{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func mindmapKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "MINDMAP#" + id},
		"SK": &types.AttributeValueMemberS{Value: snapshotSK},
	}
}

// Load returns the archived mindmap or ports.ErrArchiveMiss
func (a *MindmapArchive) Load(ctx context.Context, id string) (*entities.Mindmap, error) {
	proj := expression.NamesList(expression.Name("Document"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(a.tableName),
		Key:                      mindmapKey(id),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		ConsistentRead:           aws.Bool(true),
	})
	if err != nil {
		return nil, classify("load", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrArchiveMiss
	}

	var item mindmapItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mindmap %s: %w", id, err)
	}
	if item.Document == nil {
		return nil, ports.ErrArchiveMiss
	}
	return item.Document, nil
}

// Store writes the whole mindmap as one item. The put is conditional on the
// stored snapshot not being newer, and a failed condition is not an error.
func (a *MindmapArchive) Store(ctx context.Context, m *entities.Mindmap) error {
	updatedAt := utils.FormatSortable(m.UpdatedAt)
	item, err := attributevalue.MarshalMap(mindmapItem{
		PK:         "MINDMAP#" + m.ID,
		SK:         snapshotSK,
		EntityType: entityType,
		Title:      m.Title,
		NodeCount:  len(m.Nodes),
		Document:   m,
		UpdatedAt:  updatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mindmap %s: %w", m.ID, err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("UpdatedAt").LessThanEqual(expression.Value(updatedAt)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(a.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var stale *types.ConditionalCheckFailedException
	if errors.As(err, &stale) {
		a.logger.Debug("Newer mindmap snapshot already archived",
			zap.String("mindmap_id", m.ID),
			zap.String("updated_at", updatedAt),
		)
		return nil
	}
	if err != nil {
		return classify("store", m.ID, err)
	}

	a.logger.Debug("Mindmap archived",
		zap.String("mindmap_id", m.ID),
		zap.Int("node_count", len(m.Nodes)),
	)
	return nil
}

// Ping checks the table exists and is reachable
func (a *MindmapArchive) Ping(ctx context.Context) error {
	_, err := a.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(a.tableName)})
	if err != nil {
		return classify("describe", a.tableName, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (a *MindmapArchive) Close() error {
	return nil
}

// classify converts DynamoDB API errors into application errors
func classify(op, id string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewNetworkError(fmt.Sprintf("dynamodb %s %s failed", op, id), err)
	}

	switch ae.ErrorCode() {
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err).WithDetail("operation", op)
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
		return pkgerrors.NewRateLimitError(ae.ErrorMessage()).WithCause(err).WithDetail("operation", op)
	default:
		return pkgerrors.NewExternalError(fmt.Sprintf("dynamodb %s %s failed: %s", op, id, ae.ErrorCode()), 0).WithCause(err)
	}
}
