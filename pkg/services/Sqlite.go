package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
)

const (
	sqliteTimeout = time.Second * 5
)

var registerSqliteBind sync.Once

/*
ConnectSqlite opens the pure-Go SQLite driver through sqlz. It backs
the same two record types for local development. The directory holding
a file database is created when missing.
*/
func ConnectSqlite(dsn string) (*sqlz.DB, error) {
	var (
		err error
		db  *sqlz.DB
	)

	registerSqliteBind.Do(func() {
		binds.Register("sqlite", binds.BindByDriver("sqlite3"))
	})

	if dbPath := sqliteFilePath(dsn); dbPath != "" {
		if err = os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("error creating directory for sqlite database '%s': %w", dsn, err)
		}
	}

	if db, err = sqlz.Connect("sqlite", dsn); err != nil {
		return nil, fmt.Errorf("error connecting to sqlite database '%s': %w", dsn, err)
	}

	return db, nil
}

/*
sqliteFilePath returns the file a DSN points at, or an empty string for
in-memory databases.

	file:./data/photos3.db?_pragma=busy_timeout(5000) -> ./data/photos3.db
	:memory:                                          -> ""
*/
func sqliteFilePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	p, _, _ = strings.Cut(p, "?")

	if p == "" || strings.HasPrefix(p, ":memory:") {
		return ""
	}

	return p
}

func execSqlite(db *sqlz.DB, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	_, err := db.Exec(ctx, query, args...)
	return err
}
