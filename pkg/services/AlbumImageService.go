package services

import (
	"context"
	"fmt"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type AlbumImageServicer interface {
	Add(name, checksum string) error
	EnsureTable() error
	Get(name, checksum string) (*models.AlbumImage, error)
	ListAlbums(checksum string) ([]models.AlbumImage, error)
	ListImages(name string) ([]models.AlbumImage, error)
	Remove(name, checksum string) error
}

type AlbumImageServiceConfig struct {
	Client    DynamoDBAPI
	TableName string
}

type AlbumImageService struct {
	client    DynamoDBAPI
	tableName string
}

func NewAlbumImageService(config AlbumImageServiceConfig) (AlbumImageService, error) {
	if err := ValidateTableName(config.TableName); err != nil {
		return AlbumImageService{}, err
	}

	return AlbumImageService{
		client:    config.Client,
		tableName: config.TableName,
	}, nil
}

func (s AlbumImageService) EnsureTable() error {
	return ensureDynamoTable(s.client, s.tableName, []types.KeySchemaElement{
		{AttributeName: aws.String("name"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("checksum"), KeyType: types.KeyTypeRange},
	})
}

/*
Add puts the (name, checksum) pair. Adding a pair that is already
there overwrites the same item.
*/
func (s AlbumImageService) Add(name, checksum string) error {
	var (
		err  error
		item map[string]types.AttributeValue
	)

	if name == "" || checksum == "" {
		return models.ErrMissingKey
	}

	if item, err = attributevalue.MarshalMap(models.AlbumImage{Name: name, Checksum: checksum}); err != nil {
		return fmt.Errorf("error marshaling album image %s/%s: %w", name, checksum, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})

	if err != nil {
		return fmt.Errorf("error adding image %s to album '%s' in '%s': %w", checksum, name, s.tableName, err)
	}

	return nil
}

func (s AlbumImageService) Get(name, checksum string) (*models.AlbumImage, error) {
	var (
		err    error
		output *dynamodb.GetItemOutput
	)

	if name == "" || checksum == "" {
		return nil, models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	output, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       albumImageKey(name, checksum),
	})

	if err != nil {
		return nil, fmt.Errorf("error getting album image %s/%s from '%s': %w", name, checksum, s.tableName, err)
	}

	if len(output.Item) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", models.ErrAlbumImageNotFound, name, checksum)
	}

	result := &models.AlbumImage{}

	if err = attributevalue.UnmarshalMap(output.Item, result); err != nil {
		return nil, fmt.Errorf("error unmarshaling album image %s/%s: %w", name, checksum, err)
	}

	return result, nil
}

func (s AlbumImageService) Remove(name, checksum string) error {
	var (
		err error
	)

	if name == "" || checksum == "" {
		return models.ErrMissingKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
	defer cancel()

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       albumImageKey(name, checksum),
	})

	if err != nil {
		return fmt.Errorf("error removing image %s from album '%s' in '%s': %w", checksum, name, s.tableName, err)
	}

	return nil
}

/*
ListImages queries every image in the album, following pagination
until the table reports no more pages.
*/
func (s AlbumImageService) ListImages(name string) ([]models.AlbumImage, error) {
	var (
		err    error
		output *dynamodb.QueryOutput
		page   []models.AlbumImage
	)

	if name == "" {
		return nil, models.ErrMissingKey
	}

	result := []models.AlbumImage{}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#name = :name"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
	}

	for {
		ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
		output, err = s.client.Query(ctx, input)
		cancel()

		if err != nil {
			return nil, fmt.Errorf("error querying images for album '%s' in '%s': %w", name, s.tableName, err)
		}

		page = []models.AlbumImage{}

		if err = attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, fmt.Errorf("error unmarshaling images for album '%s': %w", name, err)
		}

		result = append(result, page...)

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return result, nil
}

/*
ListAlbums finds every album holding the image. The table only has the
(name, checksum) key, so this is a filtered scan.
*/
func (s AlbumImageService) ListAlbums(checksum string) ([]models.AlbumImage, error) {
	var (
		err    error
		output *dynamodb.ScanOutput
		page   []models.AlbumImage
	)

	if checksum == "" {
		return nil, models.ErrMissingKey
	}

	result := []models.AlbumImage{}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("checksum = :checksum"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":checksum": &types.AttributeValueMemberS{Value: checksum},
		},
	}

	for {
		ctx, cancel := context.WithTimeout(context.Background(), dynamoTimeout)
		output, err = s.client.Scan(ctx, input)
		cancel()

		if err != nil {
			return nil, fmt.Errorf("error scanning albums for image %s in '%s': %w", checksum, s.tableName, err)
		}

		page = []models.AlbumImage{}

		if err = attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, fmt.Errorf("error unmarshaling albums for image %s: %w", checksum, err)
		}

		result = append(result, page...)

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return result, nil
}

func albumImageKey(name, checksum string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name":     &types.AttributeValueMemberS{Value: name},
		"checksum": &types.AttributeValueMemberS{Value: checksum},
	}
}
