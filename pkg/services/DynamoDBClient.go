package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdkconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	dynamoTimeout         = time.Second * 5
	dynamoCreateTableWait = time.Minute * 2
)

var (
	dynamoTableWaitMinDelay = time.Second * 20
	dynamoTableWaitMaxDelay = time.Minute * 2
)

/*
DynamoDBAPI is the part of *dynamodb.Client the record services use.
*/
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type DynamoDBClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func NewDynamoDBClient(config DynamoDBClientConfig) (*dynamodb.Client, error) {
	var (
		err    error
		awsCfg aws.Config
	)

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	options := []func(*awssdkconfig.LoadOptions) error{
		awssdkconfig.WithRegion(config.Region),
	}

	if config.AccessKeyID != "" {
		options = append(options, awssdkconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	if awsCfg, err = awssdkconfig.LoadDefaultConfig(ctx, options...); err != nil {
		return nil, fmt.Errorf("error loading AWS config for DynamoDB: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	return client, nil
}

/*
ensureDynamoTable creates tableName with the given key schema when it
does not exist yet. Every key attribute is a string. It returns once the
table is ACTIVE, so a table another process is still creating is waited
on too.
*/
func ensureDynamoTable(client DynamoDBAPI, tableName string, keys []types.KeySchemaElement) error {
	var (
		err       error
		notFound  *types.ResourceNotFoundException
		inUse     *types.ResourceInUseException
		described *dynamodb.DescribeTableOutput
	)

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	described, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})

	if err == nil {
		if described.Table != nil && described.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		slog.Info("table exists but is not active yet", "tableName", tableName)
		return waitForDynamoTable(client, tableName)
	}

	if !errors.As(err, &notFound) {
		return fmt.Errorf("error describing table '%s': %w", tableName, err)
	}

	definitions := []types.AttributeDefinition{}

	for _, k := range keys {
		definitions = append(definitions, types.AttributeDefinition{
			AttributeName: k.AttributeName,
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	slog.Info("creating table", "tableName", tableName)

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tableName),
		KeySchema:            keys,
		AttributeDefinitions: definitions,
		BillingMode:          types.BillingModePayPerRequest,
	})

	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("error creating table '%s': %w", tableName, err)
	}

	return waitForDynamoTable(client, tableName)
}

func waitForDynamoTable(client DynamoDBAPI, tableName string) error {
	var (
		err error
	)

	waiter := dynamodb.NewTableExistsWaiter(client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = dynamoTableWaitMinDelay
		o.MaxDelay = dynamoTableWaitMaxDelay
	})

	err = waiter.Wait(context.Background(), &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, dynamoCreateTableWait)

	if err != nil {
		return fmt.Errorf("error waiting for table '%s' to become active: %w", tableName, err)
	}

	return nil
}

func stringAttribute(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}

	return ""
}
