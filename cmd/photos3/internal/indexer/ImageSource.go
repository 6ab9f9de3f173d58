package indexer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/adampresley/adamgokit/slices"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	validImageExtensions = []string{".jpg", ".jpeg", ".png"}
)

type SourceObject struct {
	Key          string
	LastModified time.Time
}

/*
ImageSource is where the indexer finds original images and writes
thumbnails.
*/
type ImageSource interface {
	Exists(key string) (bool, error)
	ListImages(prefix string) ([]SourceObject, error)
	Open(key string) (io.ReadCloser, error)
	Put(key string, body io.Reader) error
}

type S3ImageSourceConfig struct {
	Bucket   string
	S3Client s3.S3Client
}

type S3ImageSource struct {
	bucket   string
	s3Client s3.S3Client
}

func NewS3ImageSource(config S3ImageSourceConfig) S3ImageSource {
	return S3ImageSource{
		bucket:   config.Bucket,
		s3Client: config.S3Client,
	}
}

func IsImageKey(key string) bool {
	ext := strings.ToLower(filepath.Ext(key))
	return slices.IsInSlice(ext, validImageExtensions)
}

func (s S3ImageSource) ListImages(prefix string) ([]SourceObject, error) {
	var (
		err      error
		response s3.ListResponse
	)

	response, err = s.s3Client.List(
		s.bucket,
		prefix,
		listoptions.WithGetAll(),
		listoptions.WithFilter(func(obj types.Object) bool {
			return IsImageKey(aws.ToString(obj.Key))
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("error listing images under '%s' in bucket '%s': %w", prefix, s.bucket, err)
	}

	result := make([]SourceObject, 0, len(response.Objects))

	for _, obj := range response.Objects {
		result = append(result, SourceObject{
			Key:          obj.Key,
			LastModified: obj.LastModified,
		})
	}

	return result, nil
}

func (s S3ImageSource) Open(key string) (io.ReadCloser, error) {
	var (
		err    error
		object s3.GetObjectResponse
	)

	if object, err = s.s3Client.Get(s.bucket, key); err != nil {
		return nil, fmt.Errorf("error retrieving object %s: %w", key, err)
	}

	return object.Body, nil
}

func (s S3ImageSource) Exists(key string) (bool, error) {
	var (
		err  error
		stat *s3.ObjectMetadata
	)

	if stat, err = s.s3Client.StatObject(s.bucket, key); err != nil {
		return false, fmt.Errorf("error retrieving metadata for %s: %w", key, err)
	}

	return stat != nil, nil
}

func (s S3ImageSource) Put(key string, body io.Reader) error {
	_, err := s.s3Client.Put(
		s.bucket,
		key,
		body,
	)

	if err != nil {
		return fmt.Errorf("error uploading %s to S3: %w", key, err)
	}

	return nil
}
