package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/adampresley/adamgokit/awsconfig"
	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/photos3/cmd/photos3/internal/albums"
	"github.com/adampresley/photos3/cmd/photos3/internal/configuration"
	"github.com/adampresley/photos3/cmd/photos3/internal/images"
	"github.com/adampresley/photos3/cmd/photos3/internal/indexer"
	"github.com/adampresley/photos3/pkg/services"
)

var (
	Version string = "development"
	appName string = "photos3"

	config configuration.Config

	/* Services */
	albumImageService    services.AlbumImageServicer
	imageMetaDataService services.ImageMetaDataServicer
	indexerService       indexer.Indexer

	/* Controllers */
	albumsController albums.AlbumsController
	imagesController images.ImagesController
)

func main() {
	var (
		err error
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.String("storeBackend", config.StoreBackend),
		slog.String("metaTable", config.MetaTable),
		slog.String("albumTable", config.AlbumTable),
		slog.String("awsEndpointUrl", config.AwsEndpointUrl),
		slog.String("awsRegion", config.AwsRegion),
	)

	if err = config.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Setup services
	 */
	setupStores()

	if err = imageMetaDataService.EnsureTable(); err != nil {
		panic(err)
	}

	if err = albumImageService.EnsureTable(); err != nil {
		panic(err)
	}

	if config.AwsBucket != "" {
		indexerService = indexer.NewIndexerService(indexer.IndexerConfig{
			AlbumImageService:    albumImageService,
			ImageMetaDataService: imageMetaDataService,
			IngestPrefix:         config.IngestPrefix,
			MaxWorkers:           config.MaxIndexWorkers,
			ShutdownCtx:          shutdownCtx,
			Source:               setupImageSource(),
			ThumbnailPrefix:      config.ThumbnailPrefix,
		})
	}

	/*
	 * Setup controllers
	 */
	albumsController = albums.NewAlbumsController(albums.AlbumsControllerConfig{
		AlbumImageService: albumImageService,
	})

	imagesController = images.NewImagesController(images.ImagesControllerConfig{
		AlbumImageService:    albumImageService,
		ImageMetaDataService: imageMetaDataService,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	requestLogger := newRequestLoggerMiddleware([]string{"/heartbeat"})
	middlewares := []mux.MiddlewareFunc{requestLogger}

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /images/{checksum}", HandlerFunc: imagesController.GetImage, Middlewares: middlewares},
		{Path: "PUT /images/{checksum}", HandlerFunc: imagesController.PutImage, Middlewares: middlewares},
		{Path: "DELETE /images/{checksum}", HandlerFunc: imagesController.DeleteImage, Middlewares: middlewares},
		{Path: "GET /images/{checksum}/albums", HandlerFunc: imagesController.GetImageAlbums, Middlewares: middlewares},
		{Path: "GET /albums/{name}/images", HandlerFunc: albumsController.ListImages, Middlewares: middlewares},
		{Path: "PUT /albums/{name}/images/{checksum}", HandlerFunc: albumsController.AddImage, Middlewares: middlewares},
		{Path: "DELETE /albums/{name}/images/{checksum}", HandlerFunc: albumsController.RemoveImage, Middlewares: middlewares},
	}

	routerConfig := mux.RouterConfig{
		Address:          config.Host,
		Debug:            Version == "development",
		HttpWriteTimeout: 60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Start the indexer job
	 */
	if indexerService != nil {
		setupIndexer(shutdownCtx)
	} else {
		slog.Info("no bucket configured. indexer disabled")
	}

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	mux.Shutdown(httpServer)
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

func setupStores() {
	var (
		err error
	)

	if config.StoreBackend == configuration.StoreBackendSqlite {
		db, err := services.ConnectSqlite(config.DSN)

		if err != nil {
			panic(err)
		}

		if imageMetaDataService, err = services.NewSqliteImageMetaDataService(services.SqliteImageMetaDataServiceConfig{
			DB:        db,
			TableName: config.MetaTable,
		}); err != nil {
			panic(err)
		}

		if albumImageService, err = services.NewSqliteAlbumImageService(services.SqliteAlbumImageServiceConfig{
			DB:        db,
			TableName: config.AlbumTable,
		}); err != nil {
			panic(err)
		}

		return
	}

	var client services.DynamoDBAPI

	retrier.Retry(func() error {
		if client, err = services.NewDynamoDBClient(services.DynamoDBClientConfig{
			Endpoint:        config.AwsEndpointUrl,
			Region:          config.AwsRegion,
			AccessKeyID:     config.AwsAccessKeyId,
			SecretAccessKey: config.AwsSecretAccessKey,
		}); err != nil {
			slog.Error("failed to create DynamoDB client. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	if imageMetaDataService, err = services.NewImageMetaDataService(services.ImageMetaDataServiceConfig{
		Client:    client,
		TableName: config.MetaTable,
	}); err != nil {
		panic(err)
	}

	if albumImageService, err = services.NewAlbumImageService(services.AlbumImageServiceConfig{
		Client:    client,
		TableName: config.AlbumTable,
	}); err != nil {
		panic(err)
	}
}

func setupImageSource() indexer.ImageSource {
	var (
		err error
	)

	awsConfig := &awsconfig.Config{
		Endpoint:        config.AwsEndpointUrl,
		Region:          config.AwsRegion,
		AccessKeyID:     config.AwsAccessKeyId,
		SecretAccessKey: config.AwsSecretAccessKey,
	}

	retrier.Retry(func() error {
		if err = awsConfig.Load(); err != nil {
			slog.Error("failed to load AWS config. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	s3Client, err := s3.NewClient(awsConfig)

	if err != nil {
		panic(err)
	}

	return indexer.NewS3ImageSource(indexer.S3ImageSourceConfig{
		Bucket:   config.AwsBucket,
		S3Client: s3Client,
	})
}

func setupIndexer(shutdownCtx context.Context) {
	interval := time.Duration(config.IndexIntervalMinutes) * time.Minute

	if interval <= 0 {
		interval = time.Hour
	}

	runner := newOverlapSkippingRunner(func() {
		indexerService.Run()
	})

	go runIndexerSchedule(shutdownCtx, interval, runner.Trigger)
}
