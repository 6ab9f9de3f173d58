package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adampresley/photos3/pkg/models"
	"github.com/rfberaldo/sqlz"
)

type SqliteImageMetaDataServiceConfig struct {
	DB        *sqlz.DB
	TableName string
}

type SqliteImageMetaDataService struct {
	db        *sqlz.DB
	tableName string
}

type imageMetaDataRow struct {
	Checksum string         `db:"checksum"`
	Exif     sql.NullString `db:"exif"`
	Info     sql.NullString `db:"info"`
}

func NewSqliteImageMetaDataService(config SqliteImageMetaDataServiceConfig) (SqliteImageMetaDataService, error) {
	if err := ValidateTableName(config.TableName); err != nil {
		return SqliteImageMetaDataService{}, err
	}

	return SqliteImageMetaDataService{
		db:        config.DB,
		tableName: config.TableName,
	}, nil
}

func (s SqliteImageMetaDataService) EnsureTable() error {
	sql := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	checksum TEXT NOT NULL PRIMARY KEY
	, exif TEXT NULL
	, info TEXT NULL
)`, quoteIdentifier(s.tableName))

	if err := execSqlite(s.db, sql); err != nil {
		return fmt.Errorf("error creating table '%s': %w", s.tableName, err)
	}

	return nil
}

func (s SqliteImageMetaDataService) Get(checksum string) (*models.ImageMetaData, error) {
	var (
		err error
		row imageMetaDataRow
	)

	if checksum == "" {
		return nil, models.ErrMissingKey
	}

	sql := fmt.Sprintf(`
SELECT
	checksum
	, exif
	, info
FROM %s
WHERE checksum=?
`, quoteIdentifier(s.tableName))

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if err = s.db.QueryRow(ctx, &row, sql, checksum); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrImageMetaDataNotFound, checksum)
		}

		return nil, fmt.Errorf("error querying for image metadata %s in '%s': %w", checksum, s.tableName, err)
	}

	result := &models.ImageMetaData{
		Checksum: row.Checksum,
	}

	if result.Exif, err = models.ParseJSONDocument(row.Exif.String); err != nil {
		return nil, fmt.Errorf("error reading exif for image metadata %s: %w", checksum, err)
	}

	if result.Info, err = models.ParseJSONDocument(row.Info.String); err != nil {
		return nil, fmt.Errorf("error reading info for image metadata %s: %w", checksum, err)
	}

	return result, nil
}

func (s SqliteImageMetaDataService) Exists(checksum string) (bool, error) {
	var (
		err    error
		exists int
	)

	if checksum == "" {
		return false, models.ErrMissingKey
	}

	sql := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE checksum=?)`, quoteIdentifier(s.tableName))

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if err = s.db.QueryRow(ctx, &exists, sql, checksum); err != nil {
		return false, fmt.Errorf("error checking image metadata %s in '%s': %w", checksum, s.tableName, err)
	}

	return exists == 1, nil
}

func (s SqliteImageMetaDataService) Put(record *models.ImageMetaData) error {
	if record == nil || record.Checksum == "" {
		return models.ErrMissingKey
	}

	sql := fmt.Sprintf(`
INSERT INTO %s (
	checksum
	, exif
	, info
) VALUES (?, ?, ?)
ON CONFLICT (checksum) DO UPDATE SET
	exif=excluded.exif
	, info=excluded.info
`, quoteIdentifier(s.tableName))

	params := []any{
		record.Checksum,
		nullableJSON(record.Exif),
		nullableJSON(record.Info),
	}

	if err := execSqlite(s.db, sql, params...); err != nil {
		return fmt.Errorf("error putting image metadata %s into '%s': %w", record.Checksum, s.tableName, err)
	}

	return nil
}

func (s SqliteImageMetaDataService) Delete(checksum string) error {
	if checksum == "" {
		return models.ErrMissingKey
	}

	sql := fmt.Sprintf(`DELETE FROM %s WHERE checksum=?`, quoteIdentifier(s.tableName))

	if err := execSqlite(s.db, sql, checksum); err != nil {
		return fmt.Errorf("error deleting image metadata %s from '%s': %w", checksum, s.tableName, err)
	}

	return nil
}

func nullableJSON(doc models.JSONDocument) sql.NullString {
	if doc.IsNull() {
		return sql.NullString{}
	}

	return sql.NullString{String: doc.String(), Valid: true}
}
