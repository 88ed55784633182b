package client

import (
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/model"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase opens the store selected by cfg.Driver and migrates the schema.
// Callers get the same *gorm.DB regardless of dialect.
func InitDatabase(cfg *config.Database) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.AuthSession{},
		&model.Build{},
		&model.Component{},
		&model.Order{},
		&model.WebhookEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func dialectorFor(cfg *config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite", "":
		dsn, err := sqliteDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(cfg.URL), nil
	case "postgres":
		return postgres.Open(cfg.URL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN makes every transaction take the write lock up front and wait for
// it, so concurrent webhook deliveries serialize instead of failing with
// SQLITE_BUSY.
func sqliteDSN(path string) (string, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	params := []string{"_busy_timeout=5000", "_txlock=immediate", "_foreign_keys=on"}
	if path != ":memory:" {
		params = append(params, "_journal_mode=WAL")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	dsn := path
	for _, p := range params {
		key := p[:strings.Index(p, "=")+1]
		if strings.Contains(path, key) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn, nil
}
