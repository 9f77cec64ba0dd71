package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConfig selects the table and item holding the document.
type DynamoConfig struct {
	TableName string
	Name      string
}

type documentItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Body      string `dynamodbav:"Body"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

const documentSortKey = "DOCUMENT"

// DynamoStore keeps the document as a single DynamoDB item. PutItem replaces
// the item as a whole, so concurrent writers resolve last-writer-wins.
type DynamoStore struct {
	client DynamoAPI
	config DynamoConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewDynamoStore creates a DynamoDB backed store.
func NewDynamoStore(client DynamoAPI, config DynamoConfig, logger *zap.Logger) *DynamoStore {
	return &DynamoStore{client: client, config: config, now: time.Now, logger: logger}
}

// Location returns the dynamodb:// address of the document.
func (s *DynamoStore) Location() string {
	return fmt.Sprintf("dynamodb://%s/%s", s.config.TableName, s.config.Name)
}

func (s *DynamoStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "MENU#" + s.config.Name},
		"SK": &types.AttributeValueMemberS{Value: documentSortKey},
	}
}

// Get reads the document item.
func (s *DynamoStore) Get(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("DynamoDB GetItem failed: %w", describe(err))
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to convert DynamoDB item: %w", err)
	}
	return []byte(item.Body), nil
}

// Put replaces the document item.
func (s *DynamoStore) Put(ctx context.Context, data []byte) error {
	av, err := attributevalue.MarshalMap(documentItem{
		PK:        "MENU#" + s.config.Name,
		SK:        documentSortKey,
		Body:      string(data),
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DynamoDB item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("DynamoDB PutItem failed: %w", describe(err))
	}

	s.logger.Debug("Document stored",
		zap.String("location", s.Location()),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// describe adds the AWS error code to API errors.
func describe(err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return err
	}
	switch ae.ErrorCode() {
	case "ResourceNotFoundException":
		return fmt.Errorf("table not found: %w", err)
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded":
		return fmt.Errorf("throughput exceeded: %w", err)
	}
	return err
}
