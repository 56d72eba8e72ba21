package store

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoConfig struct {
	Region string
	Table  string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// DynamoAPI is the subset of the DynamoDB client the repository uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoRepository stores one row per key with attributes key, value and ttl.
// The table's TTL setting should point at the ttl attribute so DynamoDB
// evicts expired rows on its own schedule.
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoRepository(ctx context.Context, cfg DynamoConfig) (*DynamoRepository, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, unavailable("dynamodb load config", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoRepositoryWithClient(client, cfg.Table), nil
}

func NewDynamoRepositoryWithClient(client DynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func (repository *DynamoRepository) GetItem(ctx context.Context, key string) (*Item, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	out, err := repository.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(repository.table),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("dynamodb get", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return decodeDynamoItem(out.Item)
}

func (repository *DynamoRepository) PutItem(ctx context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}
	_, err := repository.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(repository.table),
		Item:      encodeDynamoItem(item),
	})
	if err != nil {
		return nil, unavailable("dynamodb put", err)
	}
	return &item, nil
}

func (repository *DynamoRepository) DeleteItem(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := repository.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(repository.table),
		Key:       dynamoKey(key),
	})
	if err != nil {
		return unavailable("dynamodb delete", err)
	}
	return nil
}

func (repository *DynamoRepository) Close() error {
	return nil
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

func encodeDynamoItem(item Item) map[string]types.AttributeValue {
	attributes := map[string]types.AttributeValue{
		"key":   &types.AttributeValueMemberS{Value: item.Key},
		"value": &types.AttributeValueMemberS{Value: item.Value},
	}
	if item.HasTTL() {
		attributes["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(item.TTL, 10)}
	}
	return attributes
}

func decodeDynamoItem(attributes map[string]types.AttributeValue) (*Item, error) {
	var item Item
	if v, ok := attributes["key"].(*types.AttributeValueMemberS); ok {
		item.Key = v.Value
	}
	if v, ok := attributes["value"].(*types.AttributeValueMemberS); ok {
		item.Value = v.Value
	}
	if v, ok := attributes["ttl"].(*types.AttributeValueMemberN); ok {
		ttl, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, unavailable("dynamodb decode ttl", err)
		}
		item.TTL = ttl
	}
	return &item, nil
}
