package services

import (
	"context"
	"fmt"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/rfberaldo/sqlz"
)

type SqliteAlbumImageServiceConfig struct {
	DB        *sqlz.DB
	TableName string
}

type SqliteAlbumImageService struct {
	db        *sqlz.DB
	tableName string
}

func NewSqliteAlbumImageService(config SqliteAlbumImageServiceConfig) (SqliteAlbumImageService, error) {
	if err := ValidateTableName(config.TableName); err != nil {
		return SqliteAlbumImageService{}, err
	}

	return SqliteAlbumImageService{
		db:        config.DB,
		tableName: config.TableName,
	}, nil
}

func (s SqliteAlbumImageService) EnsureTable() error {
	sql := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT NOT NULL
	, checksum TEXT NOT NULL
	, PRIMARY KEY (name, checksum)
)`, quoteIdentifier(s.tableName))

	if err := execSqlite(s.db, sql); err != nil {
		return fmt.Errorf("error creating table '%s': %w", s.tableName, err)
	}

	return nil
}

func (s SqliteAlbumImageService) Add(name, checksum string) error {
	if name == "" || checksum == "" {
		return models.ErrMissingKey
	}

	sql := fmt.Sprintf(`INSERT OR IGNORE INTO %s (name, checksum) VALUES (?, ?)`, quoteIdentifier(s.tableName))

	if err := execSqlite(s.db, sql, name, checksum); err != nil {
		return fmt.Errorf("error adding image %s to album '%s' in '%s': %w", checksum, name, s.tableName, err)
	}

	return nil
}

func (s SqliteAlbumImageService) Get(name, checksum string) (*models.AlbumImage, error) {
	var (
		err error
	)

	if name == "" || checksum == "" {
		return nil, models.ErrMissingKey
	}

	result := &models.AlbumImage{}

	sql := fmt.Sprintf(`
SELECT
	name
	, checksum
FROM %s
WHERE 1=1
	AND name=?
	AND checksum=?
`, quoteIdentifier(s.tableName))

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if err = s.db.QueryRow(ctx, result, sql, name, checksum); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", models.ErrAlbumImageNotFound, name, checksum)
		}

		return nil, fmt.Errorf("error querying for album image %s/%s in '%s': %w", name, checksum, s.tableName, err)
	}

	return result, nil
}

func (s SqliteAlbumImageService) Remove(name, checksum string) error {
	if name == "" || checksum == "" {
		return models.ErrMissingKey
	}

	sql := fmt.Sprintf(`
DELETE FROM %s
WHERE 1=1
	AND name=?
	AND checksum=?
`, quoteIdentifier(s.tableName))

	if err := execSqlite(s.db, sql, name, checksum); err != nil {
		return fmt.Errorf("error removing image %s from album '%s' in '%s': %w", checksum, name, s.tableName, err)
	}

	return nil
}

func (s SqliteAlbumImageService) ListImages(name string) ([]models.AlbumImage, error) {
	if name == "" {
		return nil, models.ErrMissingKey
	}

	return s.list("name", name)
}

func (s SqliteAlbumImageService) ListAlbums(checksum string) ([]models.AlbumImage, error) {
	if checksum == "" {
		return nil, models.ErrMissingKey
	}

	return s.list("checksum", checksum)
}

func (s SqliteAlbumImageService) list(column, value string) ([]models.AlbumImage, error) {
	var (
		err error
	)

	result := []models.AlbumImage{}

	sql := fmt.Sprintf(`
SELECT
	name
	, checksum
FROM %s
WHERE %s=?
ORDER BY name, checksum
`, quoteIdentifier(s.tableName), column)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if err = s.db.Query(ctx, &result, sql, value); err != nil && !sqlz.IsNotFound(err) {
		return nil, fmt.Errorf("error querying album images by %s '%s' in '%s': %w", column, value, s.tableName, err)
	}

	return result, nil
}
