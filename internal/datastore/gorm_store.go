package datastore

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/visitprep/internal/conf"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
)

const (
	dialectSQLite = "sqlite"
	dialectMySQL  = "mysql"

	defaultMySQLMaxOpenConns = 10
)

// GormStore implements Storage on a single GORM-managed table.
type GormStore struct {
	db       *gorm.DB
	table    string
	dialect  string
	location string // file path or host:port/database, for display
}

// NewSQLiteStore opens (and creates if needed) an SQLite database at path.
func NewSQLiteStore(path string, log logger.Logger, slowThreshold time.Duration) (*GormStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryStorage).
				Context("operation", "open_sqlite").
				Build()
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowThreshold),
	})
	if err != nil {
		return nil, storageError(fmt.Errorf("failed to open SQLite database: %w", err), "open_sqlite", "")
	}

	// one writer at a time; SQLite serializes writes anyway
	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageError(fmt.Errorf("failed to get underlying database: %w", err), "open_sqlite", "")
	}
	sqlDB.SetMaxOpenConns(1)

	return newGormStore(db, dialectSQLite, path, kvTable)
}

// MySQLDSN builds the driver DSN for cfg.
func MySQLDSN(cfg *conf.MySQLSettings) string {
	mc := mysqldriver.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// NewMySQLStore connects to MySQL. The table is prefixed with cfg.TablePrefix so
// several deployments can share one database.
func NewMySQLStore(cfg *conf.MySQLSettings, log logger.Logger, slowThreshold time.Duration) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(MySQLDSN(cfg)), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowThreshold),
	})
	if err != nil {
		return nil, storageError(fmt.Errorf("failed to open MySQL database: %w", err), "open_mysql", "")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageError(fmt.Errorf("failed to get underlying database: %w", err), "open_mysql", "")
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMySQLMaxOpenConns
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	location := fmt.Sprintf("%s/%s", net.JoinHostPort(cfg.Host, cfg.Port), cfg.Database)
	return newGormStore(db, dialectMySQL, location, cfg.TablePrefix+kvTable)
}

func newGormStore(db *gorm.DB, dialect, location, table string) (*GormStore, error) {
	if err := db.Table(table).AutoMigrate(&KVEntry{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, storageError(fmt.Errorf("failed to migrate %s schema: %w", dialect, err), "auto_migrate", "")
	}

	return &GormStore{
		db:       db,
		table:    table,
		dialect:  dialect,
		location: location,
	}, nil
}

// Location returns where the data lives, for display.
func (s *GormStore) Location() string {
	return s.location
}

// Dialect returns "sqlite" or "mysql".
func (s *GormStore) Dialect() string {
	return s.dialect
}

// Get implements Storage.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).Table(s.table).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, storageError(err, "get", key)
	}
	return entry.Value, nil
}

// Set implements Storage with an upsert on the key column.
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return storageError(err, "set", key)
	}
	return nil
}

// Delete implements Storage.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Table(s.table).Where("entry_key = ?", key).Delete(&KVEntry{}).Error
	if err != nil {
		return storageError(err, "delete", key)
	}
	return nil
}

// Close implements Storage.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
