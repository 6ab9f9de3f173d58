package services

import (
	"testing"
	"time"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageMetaDataService(t *testing.T, client *fakeDynamoDB, tableName string) ImageMetaDataService {
	t.Helper()

	service, err := NewImageMetaDataService(ImageMetaDataServiceConfig{
		Client:    client,
		TableName: tableName,
	})

	require.NoError(t, err)
	require.NoError(t, service.EnsureTable())

	return service
}

func mustDocument(t *testing.T, s string) models.JSONDocument {
	t.Helper()

	doc, err := models.ParseJSONDocument(s)
	require.NoError(t, err)

	return doc
}

func TestImageMetaDataRoundTrip(t *testing.T) {
	service := newTestImageMetaDataService(t, newFakeDynamoDB(), "photos3-meta")

	record := &models.ImageMetaData{
		Checksum: "c1",
		Exif:     mustDocument(t, `{"Make":["Canon"],"FNumber":["28/10"]}`),
		Info:     mustDocument(t, `{"size":1024,"tags":["a","b"]}`),
	}

	require.NoError(t, service.Put(record))

	got, err := service.Get("c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", got.Checksum)
	assert.JSONEq(t, record.Exif.String(), got.Exif.String())
	assert.JSONEq(t, record.Info.String(), got.Info.String())
}

func TestImageMetaDataKeysAreIndependent(t *testing.T) {
	service := newTestImageMetaDataService(t, newFakeDynamoDB(), "photos3-meta")

	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1", Info: mustDocument(t, `{"n":1}`)}))
	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c2", Info: mustDocument(t, `{"n":2}`)}))
	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1", Info: mustDocument(t, `{"n":3}`)}))

	got, err := service.Get("c2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, got.Info.String())

	got, err = service.Get("c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, got.Info.String())

	require.NoError(t, service.Delete("c1"))

	_, err = service.Get("c1")
	assert.ErrorIs(t, err, models.ErrImageMetaDataNotFound)

	exists, err := service.Exists("c2")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestImageMetaDataNullPayloadsAreNotStored(t *testing.T) {
	client := newFakeDynamoDB()
	service := newTestImageMetaDataService(t, client, "photos3-meta")

	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1"}))

	stored := client.tables["photos3-meta"].items["c1"]
	assert.Len(t, stored, 1)
	assert.IsType(t, &types.AttributeValueMemberS{}, stored["checksum"])

	got, err := service.Get("c1")
	require.NoError(t, err)
	assert.True(t, got.Exif.IsNull())
	assert.True(t, got.Info.IsNull())
}

func TestImageMetaDataStoresJSONAsString(t *testing.T) {
	client := newFakeDynamoDB()
	service := newTestImageMetaDataService(t, client, "photos3-meta")

	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1", Exif: mustDocument(t, `{"ISO":[100]}`)}))

	stored := client.tables["photos3-meta"].items["c1"]
	exif, ok := stored["exif"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.JSONEq(t, `{"ISO":[100]}`, exif.Value)
}

func TestImageMetaDataReadsItemsWrittenElsewhere(t *testing.T) {
	client := newFakeDynamoDB()
	service := newTestImageMetaDataService(t, client, "photos3-meta")

	client.tables["photos3-meta"].items["c9"] = map[string]types.AttributeValue{
		"checksum": &types.AttributeValueMemberS{Value: "c9"},
		"info":     &types.AttributeValueMemberS{Value: `{"width": 640}`},
	}

	got, err := service.Get("c9")
	require.NoError(t, err)
	assert.True(t, got.Exif.IsNull())
	assert.JSONEq(t, `{"width": 640}`, got.Info.String())
}

func TestImageMetaDataMissingKey(t *testing.T) {
	service := newTestImageMetaDataService(t, newFakeDynamoDB(), "photos3-meta")

	_, err := service.Get("")
	assert.ErrorIs(t, err, models.ErrMissingKey)
	assert.ErrorIs(t, service.Put(&models.ImageMetaData{}), models.ErrMissingKey)
	assert.ErrorIs(t, service.Put(nil), models.ErrMissingKey)
	assert.ErrorIs(t, service.Delete(""), models.ErrMissingKey)
}

func TestImageMetaDataTableNameOnlyChangesLocation(t *testing.T) {
	client := newFakeDynamoDB()
	dev := newTestImageMetaDataService(t, client, "dev-meta")
	prod := newTestImageMetaDataService(t, client, "prod-meta")

	record := &models.ImageMetaData{Checksum: "c1", Exif: mustDocument(t, `{"a":1}`), Info: mustDocument(t, `{"b":2}`)}

	require.NoError(t, dev.Put(record))
	require.NoError(t, prod.Put(record))

	assert.Equal(t, client.tables["dev-meta"].items["c1"], client.tables["prod-meta"].items["c1"])

	require.NoError(t, dev.Delete("c1"))

	_, err := prod.Get("c1")
	assert.NoError(t, err)
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	client := newFakeDynamoDB()
	service := newTestImageMetaDataService(t, client, "photos3-meta")

	require.NoError(t, service.EnsureTable())

	assert.Equal(t, 1, client.calls["CreateTable"])
	assert.Equal(t, []string{"checksum"}, client.tables["photos3-meta"].keys)
}

func TestImageMetaDataReadsAreConsistent(t *testing.T) {
	client := newFakeDynamoDB()
	service := newTestImageMetaDataService(t, client, "photos3-meta")

	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1"}))

	_, err := service.Exists("c1")
	require.NoError(t, err)

	_, err = service.Get("c1")
	require.NoError(t, err)

	require.Len(t, client.getItems, 2)

	for _, input := range client.getItems {
		assert.True(t, aws.ToBool(input.ConsistentRead))
	}
}

func TestEnsureTableWaitsForCreatingTable(t *testing.T) {
	prevMin, prevMax := dynamoTableWaitMinDelay, dynamoTableWaitMaxDelay
	dynamoTableWaitMinDelay, dynamoTableWaitMaxDelay = time.Millisecond, time.Millisecond*5

	t.Cleanup(func() {
		dynamoTableWaitMinDelay, dynamoTableWaitMaxDelay = prevMin, prevMax
	})

	client := newFakeDynamoDB()
	client.createTable("photos3-meta", "checksum")
	client.creating["photos3-meta"] = 2

	service := newTestImageMetaDataService(t, client, "photos3-meta")

	assert.Equal(t, 0, client.calls["CreateTable"])
	assert.Equal(t, 0, client.creating["photos3-meta"])
	assert.Equal(t, 3, client.calls["DescribeTable"])

	require.NoError(t, service.Put(&models.ImageMetaData{Checksum: "c1"}))
}

func TestNewImageMetaDataServiceRejectsBadTableName(t *testing.T) {
	for _, name := range []string{"", "ab", `bad"name`, "spaces are bad"} {
		_, err := NewImageMetaDataService(ImageMetaDataServiceConfig{Client: newFakeDynamoDB(), TableName: name})
		assert.ErrorIs(t, err, models.ErrInvalidTableName, name)
	}

	_, err := NewImageMetaDataService(ImageMetaDataServiceConfig{Client: newFakeDynamoDB(), TableName: "photos3.meta_v2-prod"})
	assert.NoError(t, err)
}
