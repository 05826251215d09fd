// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const dynamoQueryPageSize = 100

// DynamoAPI is the subset of *dynamodb.Client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// reportItem is the table row. report_id is the partition key and user_id is
// the partition key of the owner GSI.
type reportItem struct {
	ReportID string `dynamodbav:"report_id"`
	UserID   string `dynamodbav:"user_id,omitempty"`
	Status   string `dynamodbav:"status"`
}

// DynamoStore keeps reports in a DynamoDB table.
type DynamoStore struct {
	db        DynamoAPI
	table     string
	userIndex string
}

// NewDynamoClient builds a client from the default AWS chain, optionally
// pinned to static credentials and a custom endpoint.
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewDynamoStore wraps a client for the given table and owner index.
func NewDynamoStore(db DynamoAPI, table, userIndex string) *DynamoStore {
	return &DynamoStore{db: db, table: table, userIndex: userIndex}
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("dynamodb describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *DynamoStore) InsertReport(ctx context.Context, r model.Report) error {
	item, err := attributevalue.MarshalMap(reportItem{
		ReportID: r.ReportID.String(),
		UserID:   r.UserID.String(),
		Status:   r.Status.String(),
	})
	if err != nil {
		return err
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put report %s: %w", r.ReportID, err)
	}
	return nil
}

func (s *DynamoStore) ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error) {
	p := dynamodb.NewQueryPaginator(s.db, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.userIndex),
		Select:                 types.SelectSpecificAttributes,
		KeyConditionExpression: aws.String("#user_id = :user_id"),
		ExpressionAttributeNames: map[string]string{
			"#user_id": "user_id",
			"#s":       "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: owner.String()},
		},
		ProjectionExpression: aws.String("report_id, #s"),
		Limit:                aws.Int32(dynamoQueryPageSize),
	})

	var out []model.Report
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb query reports: %w", err)
		}
		if len(page.Items) == 0 {
			break
		}
		var items []reportItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("dynamodb decode reports: %w", err)
		}
		for _, it := range items {
			row := storedReport{ReportID: it.ReportID, UserID: owner.String(), Status: it.Status}
			if r, ok := row.toReport(); ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *DynamoStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (uuid.UUID, bool, error) {
	resp, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"report_id": &types.AttributeValueMemberS{Value: id.String()},
		},
		UpdateExpression:         aws.String("SET #s = :report_status"),
		ConditionExpression:      aws.String("attribute_exists(report_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":report_status": &types.AttributeValueMemberS{Value: status.String()},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("dynamodb update status %s: %w", id, err)
	}

	var old reportItem
	if err := attributevalue.UnmarshalMap(resp.Attributes, &old); err != nil {
		return uuid.Nil, false, fmt.Errorf("dynamodb update status %s: decode old item: %w", id, err)
	}
	owner, err := uuid.Parse(old.UserID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("dynamodb update status %s: stored owner %q: %w", id, old.UserID, err)
	}
	return owner, true, nil
}

func (s *DynamoStore) GetStatus(ctx context.Context, id uuid.UUID) (model.Status, bool, error) {
	resp, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"report_id": &types.AttributeValueMemberS{Value: id.String()},
		},
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ProjectionExpression:     aws.String("report_id, #s"),
	})
	if err != nil {
		return "", false, fmt.Errorf("dynamodb get status %s: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return "", false, nil
	}
	var it reportItem
	if err := attributevalue.UnmarshalMap(resp.Item, &it); err != nil {
		return "", false, nil
	}
	st, err := model.ParseStatus(it.Status)
	if err != nil {
		return "", false, nil
	}
	return st, true, nil
}
