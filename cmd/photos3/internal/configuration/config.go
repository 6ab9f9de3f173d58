package configuration

import (
	"fmt"

	"github.com/adampresley/configinator"
)

const (
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendSqlite   = "sqlite"
)

type Config struct {
	AlbumTable           string `flag:"albumtable" env:"ALBUM_TABLE" default:"" description:"Table holding album/image associations"`
	AwsEndpointUrl       string `flag:"awsep" env:"AWS_ENDPOINT_URL" default:"" description:"AWS endpoint URL. Leave empty to use the AWS default"`
	AwsRegion            string `flag:"awsregion" env:"AWS_REGION" default:"us-east-1" description:"AWS region"`
	AwsAccessKeyId       string `flag:"awsaccesskeyid" env:"AWS_ACCESS_KEY_ID" default:"" description:"AWS access key ID"`
	AwsSecretAccessKey   string `flag:"awssecretaccesskey" env:"AWS_SECRET_ACCESS_KEY" default:"" description:"AWS secret access key"`
	AwsBucket            string `flag:"awsbucket" env:"AWS_BUCKET" default:"" description:"S3 bucket holding the photos. Leave empty to disable indexing"`
	DSN                  string `flag:"dsn" env:"DSN" default:"file:./data/photos3.db" description:"Data source name for the sqlite store backend"`
	Host                 string `flag:"host" env:"HOST" default:"localhost:8080" description:"The address and port to bind the HTTP server to"`
	IndexIntervalMinutes int    `flag:"indexinterval" env:"INDEX_INTERVAL_MINUTES" default:"60" description:"Minutes between indexer runs"`
	IngestPrefix         string `flag:"ingestprefix" env:"INGEST_PREFIX" default:"photos" description:"S3 prefix the indexer walks. Sub-folders name albums"`
	LogLevel             string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	MaxIndexWorkers      int    `flag:"miw" env:"MAX_INDEX_WORKERS" default:"10" description:"Maximum number of concurrent indexer workers"`
	MetaTable            string `flag:"metatable" env:"META_TABLE" default:"" description:"Table holding image metadata"`
	StoreBackend         string `flag:"storebackend" env:"STORE_BACKEND" default:"dynamodb" description:"Where records are kept. Valid values are 'dynamodb' and 'sqlite'"`
	ThumbnailPrefix      string `flag:"thumbnailprefix" env:"THUMBNAIL_PREFIX" default:"thumbnails" description:"S3 prefix thumbnails are written to"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}

// Validate checks the values the service cannot start without.
func (c Config) Validate() error {
	if c.MetaTable == "" {
		return fmt.Errorf("META_TABLE is required")
	}

	if c.AlbumTable == "" {
		return fmt.Errorf("ALBUM_TABLE is required")
	}

	if c.StoreBackend != StoreBackendDynamoDB && c.StoreBackend != StoreBackendSqlite {
		return fmt.Errorf("unknown store backend '%s'", c.StoreBackend)
	}

	return nil
}
