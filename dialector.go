package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newDialector selects a database driver from the scheme of dsn.
func newDialector(dsn string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "sqlite="):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "sqlite=")
		if !strings.Contains(path, ":memory:") && !strings.HasPrefix(path, "file::") {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, false, err
			}
		}
		return sqlite.Open(mergeOptions(path, "_foreign_keys=on&_busy_timeout=5000")), true, nil
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.New(mysql.Config{
			DSN: mergeOptions(strings.TrimPrefix(dsn, "mysql://"), "charset=utf8mb4&parseTime=True&loc=UTC"),
		}), false, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		// the driver accepts the whole URL.
		return postgres.Open(dsn), false, nil
	case strings.HasPrefix(dsn, "postgres="):
		return postgres.Open(strings.TrimPrefix(dsn, "postgres=")), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported database %q: want sqlite://, mysql:// or postgres://", dsn)
	}
}

// mergeOptions appends the options to the DSN.
func mergeOptions(dsn, options string) string {
	if options == "" {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + options
	}
	return dsn + "?" + options
}

// openDB opens and configures the database named by the --dsn flag.
func (c *Context) openDB() (*gorm.DB, error) {
	dial, isSqlite, err := newDialector(c.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         slogGorm.New(slogGorm.WithLogger(c.Logger)),
	})
	if err != nil {
		return nil, err
	}
	if err := configureDB(db, isSqlite); err != nil {
		return nil, err
	}
	return db, nil
}

func configureDB(db *gorm.DB, isSqlite bool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if isSqlite {
		// one writer; pragmas are per connection.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return err
		}
		return db.Exec("PRAGMA foreign_keys = ON").Error
	}

	// SetMaxIdleConns sets the maximum number of connections in the idle connection pool.
	sqlDB.SetMaxIdleConns(10)

	// SetMaxOpenConns sets the maximum number of open connections to the database.
	sqlDB.SetMaxOpenConns(100)

	// SetConnMaxLifetime sets the maximum amount of time a connection may be reused.
	sqlDB.SetConnMaxLifetime(time.Hour)

	return nil
}
