package config

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bellapacxx/bingo-live/utils/logger"
)

// IsPostgres reports whether dsn points at a Postgres server. Anything else
// is treated as a SQLite path or URI.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// OpenDatabase connects to Postgres or SQLite depending on the DSN.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	if IsPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Infof("✅ Connected to postgres")
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite has no row locks; one connection serialises transactions
	sqlDB.SetMaxOpenConns(1)
	logger.Infof("✅ Connected to sqlite at %s", dsn)
	return db, nil
}

// Connect opens the database and migrates it.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := OpenDatabase(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
