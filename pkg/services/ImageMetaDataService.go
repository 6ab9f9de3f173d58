package services

import (
	"context"
	"fmt"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type ImageMetaDataServicer interface {
	Delete(checksum string) error
	EnsureTable() error
	Exists(checksum string) (bool, error)
	Get(checksum string) (*models.ImageMetaData, error)
	Put(record *models.ImageMetaData) error
}

type ImageMetaDataServiceConfig struct {
	Client    DynamoDBAPI
	TableName string
}

type ImageMetaDataService struct {
	client    DynamoDBAPI
	tableName string
}

func NewImageMetaDataService(config ImageMetaDataServiceConfig) (ImageMetaDataService, error) {
	if err := ValidateTableName(config.TableName); err != nil {
		return ImageMetaDataService{}, err
	}

	return ImageMetaDataService{
		client:    config.Client,
		tableName: config.TableName,
	}, nil
}

func (s ImageMetaDataService) EnsureTable() error {
	return ensureDynamoTable(s.client, s.tableName, []types.KeySchemaElement{
		{AttributeName: aws.String("checksum"), KeyType: types.KeyTypeHash},
	})
}

func (s ImageMetaDataService) Get(checksum string) (*models.ImageMetaData, error) {
	var (
		err    error
		output *dynamodb.GetItemOutput
	)

	if checksum == "" {
		return nil, models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	output, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            imageMetaDataKey(checksum),
		ConsistentRead: aws.Bool(true),
	})

	if err != nil {
		return nil, fmt.Errorf("error getting image metadata %s from '%s': %w", checksum, s.tableName, err)
	}

	if len(output.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrImageMetaDataNotFound, checksum)
	}

	return imageMetaDataFromItem(output.Item)
}

func (s ImageMetaDataService) Exists(checksum string) (bool, error) {
	var (
		err    error
		output *dynamodb.GetItemOutput
	)

	if checksum == "" {
		return false, models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	output, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  imageMetaDataKey(checksum),
		ProjectionExpression: aws.String("checksum"),
		ConsistentRead:       aws.Bool(true),
	})

	if err != nil {
		return false, fmt.Errorf("error checking image metadata %s in '%s': %w", checksum, s.tableName, err)
	}

	return len(output.Item) > 0, nil
}

/*
Put writes the record, replacing any record with the same checksum.
Null exif or info values are left out of the item.
*/
func (s ImageMetaDataService) Put(record *models.ImageMetaData) error {
	var (
		err error
	)

	if record == nil || record.Checksum == "" {
		return models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      imageMetaDataToItem(record),
	})

	if err != nil {
		return fmt.Errorf("error putting image metadata %s into '%s': %w", record.Checksum, s.tableName, err)
	}

	return nil
}

func (s ImageMetaDataService) Delete(checksum string) error {
	var (
		err error
	)

	if checksum == "" {
		return models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       imageMetaDataKey(checksum),
	})

	if err != nil {
		return fmt.Errorf("error deleting image metadata %s from '%s': %w", checksum, s.tableName, err)
	}

	return nil
}

func imageMetaDataKey(checksum string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"checksum": &types.AttributeValueMemberS{Value: checksum},
	}
}

// JSON attributes are stored as string attributes holding the JSON text.
func imageMetaDataToItem(record *models.ImageMetaData) map[string]types.AttributeValue {
	item := imageMetaDataKey(record.Checksum)

	if !record.Exif.IsNull() {
		item["exif"] = &types.AttributeValueMemberS{Value: record.Exif.String()}
	}

	if !record.Info.IsNull() {
		item["info"] = &types.AttributeValueMemberS{Value: record.Info.String()}
	}

	return item
}

func imageMetaDataFromItem(item map[string]types.AttributeValue) (*models.ImageMetaData, error) {
	var (
		err error
	)

	result := &models.ImageMetaData{
		Checksum: stringAttribute(item, "checksum"),
	}

	if result.Exif, err = models.ParseJSONDocument(stringAttribute(item, "exif")); err != nil {
		return nil, fmt.Errorf("error reading exif for image metadata %s: %w", result.Checksum, err)
	}

	if result.Info, err = models.ParseJSONDocument(stringAttribute(item, "info")); err != nil {
		return nil, fmt.Errorf("error reading info for image metadata %s: %w", result.Checksum, err)
	}

	return result, nil
}
