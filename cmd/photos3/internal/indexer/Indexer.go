package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/adampresley/photos3/pkg/services"
	"github.com/alitto/pond/v2"
	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

const (
	thumbnailMaxSize uint = 300
)

var registerExifParsers sync.Once

type Indexer interface {
	Run() Result
}

type Result struct {
	Scanned    int64
	Indexed    int64
	Skipped    int64
	Failed     int64
	AlbumLinks int64
}

type IndexerConfig struct {
	AlbumImageService    services.AlbumImageServicer
	ImageMetaDataService services.ImageMetaDataServicer
	IngestPrefix         string
	MaxWorkers           int
	ShutdownCtx          context.Context
	Source               ImageSource
	ThumbnailPrefix      string
}

type IndexerService struct {
	albumImageService    services.AlbumImageServicer
	imageMetaDataService services.ImageMetaDataServicer
	ingestPrefix         string
	maxWorkers           int
	shutdownCtx          context.Context
	source               ImageSource
	thumbnailPrefix      string
}

type counters struct {
	scanned    atomic.Int64
	indexed    atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	albumLinks atomic.Int64
}

func NewIndexerService(config IndexerConfig) IndexerService {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}

	if config.ShutdownCtx == nil {
		config.ShutdownCtx = context.Background()
	}

	return IndexerService{
		albumImageService:    config.AlbumImageService,
		imageMetaDataService: config.ImageMetaDataService,
		ingestPrefix:         strings.Trim(config.IngestPrefix, "/"),
		maxWorkers:           config.MaxWorkers,
		shutdownCtx:          config.ShutdownCtx,
		source:               config.Source,
		thumbnailPrefix:      strings.Trim(config.ThumbnailPrefix, "/"),
	}
}

/*
Run walks every image under the ingest prefix. Each image gets a
metadata record keyed by its checksum (left alone if one exists), an
album link when it sits in a sub-folder, and a thumbnail.
*/
func (ix IndexerService) Run() Result {
	var (
		err     error
		objects []SourceObject
		c       counters
	)

	slog.Info("starting indexer...", "prefix", ix.ingestPrefix)

	if objects, err = ix.source.ListImages(folderPrefix(ix.ingestPrefix)); err != nil {
		slog.Error("error listing images to index", "prefix", ix.ingestPrefix, "error", err)
		return Result{Failed: 1}
	}

	pool := pond.NewPool(ix.maxWorkers, pond.WithContext(ix.shutdownCtx))

	for _, obj := range objects {
		if !isUnderFolder(ix.ingestPrefix, obj.Key) {
			continue
		}

		// Thumbnails live in the same bucket and must not be indexed themselves.
		if ix.thumbnailPrefix != "" && isUnderFolder(ix.thumbnailPrefix, obj.Key) {
			continue
		}

		pool.Submit(func() {
			c.scanned.Add(1)

			if err := ix.indexObject(obj, &c); err != nil {
				c.failed.Add(1)
				slog.Error("error indexing image", "key", obj.Key, "error", err)
			}
		})
	}

	_ = pool.Stop().Wait()

	result := Result{
		Scanned:    c.scanned.Load(),
		Indexed:    c.indexed.Load(),
		Skipped:    c.skipped.Load(),
		Failed:     c.failed.Load(),
		AlbumLinks: c.albumLinks.Load(),
	}

	slog.Info("indexer finished",
		"scanned", result.Scanned,
		"indexed", result.Indexed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"albumLinks", result.AlbumLinks,
	)

	return result
}

func (ix IndexerService) indexObject(obj SourceObject, c *counters) error {
	var (
		err      error
		body     io.ReadCloser
		content  []byte
		exists   bool
		metaData *models.ImageMetaData
	)

	if body, err = ix.source.Open(obj.Key); err != nil {
		return err
	}

	content, err = io.ReadAll(body)
	_ = body.Close()

	if err != nil {
		return fmt.Errorf("error reading %s: %w", obj.Key, err)
	}

	checksum := HashContent(content)

	if exists, err = ix.imageMetaDataService.Exists(checksum); err != nil {
		return err
	}

	if exists {
		c.skipped.Add(1)
	} else {
		if metaData, err = BuildImageMetaData(obj, checksum, content); err != nil {
			return err
		}

		if err = ix.imageMetaDataService.Put(metaData); err != nil {
			return err
		}

		c.indexed.Add(1)
		slog.Debug("indexed image", "key", obj.Key, "checksum", checksum)
	}

	if album := AlbumFromKey(ix.ingestPrefix, obj.Key); album != "" {
		if err = ix.albumImageService.Add(album, checksum); err != nil {
			return err
		}

		c.albumLinks.Add(1)
	}

	return ix.ensureThumbnail(checksum, content)
}

func (ix IndexerService) ensureThumbnail(checksum string, content []byte) error {
	var (
		err    error
		exists bool
		img    image.Image
		buf    bytes.Buffer
	)

	key := ThumbnailKey(ix.thumbnailPrefix, checksum)

	if exists, err = ix.source.Exists(key); err != nil {
		return err
	}

	if exists {
		return nil
	}

	if img, _, err = image.Decode(bytes.NewReader(content)); err != nil {
		return fmt.Errorf("error decoding image %s for thumbnail: %w", checksum, err)
	}

	if err = jpeg.Encode(&buf, ResizeLongEdge(img, thumbnailMaxSize), &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("error encoding thumbnail %s: %w", key, err)
	}

	return ix.source.Put(key, &buf)
}

func HashContent(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

func ThumbnailKey(prefix, checksum string) string {
	return path.Join(prefix, checksum+".jpg")
}

/*
AlbumFromKey returns the folder path between the ingest prefix and the
file name. Files directly under the prefix belong to no album.

	photos/vacation/IMG_1.jpg      -> vacation
	photos/2024/vacation/IMG_1.jpg -> 2024/vacation
	photos/IMG_1.jpg               -> ""
*/
func AlbumFromKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")

	if !isUnderFolder(prefix, key) {
		return ""
	}

	rel := strings.TrimPrefix(key, folderPrefix(prefix))
	rel = strings.Trim(rel, "/")

	dir := path.Dir(rel)

	if dir == "." || dir == "/" {
		return ""
	}

	return dir
}

/*
folderPrefix turns a folder name into a listing prefix that cannot match
sibling folders sharing the same leading characters.
*/
func folderPrefix(folder string) string {
	if folder == "" {
		return ""
	}

	return folder + "/"
}

func isUnderFolder(folder, key string) bool {
	return strings.HasPrefix(key, folderPrefix(folder))
}

/*
BuildImageMetaData extracts EXIF and basic file facts. An image without
readable EXIF gets a null exif value.
*/
func BuildImageMetaData(obj SourceObject, checksum string, content []byte) (*models.ImageMetaData, error) {
	var (
		err error
	)

	result := &models.ImageMetaData{
		Checksum: checksum,
	}

	if result.Exif, err = extractExif(content); err != nil {
		slog.Debug("no exif found", "key", obj.Key, "error", err)
	}

	info := map[string]any{
		"key":         obj.Key,
		"size":        len(content),
		"contentType": http.DetectContentType(content),
	}

	if !obj.LastModified.IsZero() {
		info["lastModified"] = obj.LastModified.UTC().Format(time.RFC3339)
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(content)); err == nil {
		info["width"] = cfg.Width
		info["height"] = cfg.Height
	}

	if result.Info, err = models.NewJSONDocument(info); err != nil {
		return nil, fmt.Errorf("error building info for %s: %w", obj.Key, err)
	}

	return result, nil
}

func extractExif(content []byte) (models.JSONDocument, error) {
	var (
		err error
		x   *exif.Exif
		b   []byte
	)

	registerExifParsers.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})

	if x, err = exif.Decode(bytes.NewReader(content)); err != nil {
		return models.JSONDocument{}, err
	}

	if b, err = x.MarshalJSON(); err != nil {
		return models.JSONDocument{}, err
	}

	return models.ParseJSONDocument(string(b))
}

func ResizeLongEdge(img image.Image, maxSize uint) image.Image {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	var newWidth, newHeight uint
	if width > height {
		newWidth = maxSize
		newHeight = uint(float64(height) * (float64(maxSize) / float64(width)))
	} else {
		newHeight = maxSize
		newWidth = uint(float64(width) * (float64(maxSize) / float64(height)))
	}

	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}
