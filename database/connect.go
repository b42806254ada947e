package database

import (
	"fmt"
	"time"

	"github.com/memevote/backend/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// Open connects to the database selected by DB_TYPE (postgres or sqlite) and registers
// any read replicas listed in DB_REPLICA_DSNS.
func Open(cfg map[string]string, logger zerolog.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         NewGormLogger(logger, 2*time.Second),
	}

	dbType := config.GetString(cfg, "DB_TYPE", "postgres")
	switch dbType {
	case "postgres":
		db, err := gorm.Open(postgres.New(postgres.Config{
			DSN:                  PostgresDSN(cfg),
			PreferSimpleProtocol: true,
		}), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("error connecting to postgres: %w", err)
		}
		if err := registerReplicas(db, config.GetStrings(cfg, "DB_REPLICA_DSNS")); err != nil {
			return nil, err
		}
		return db, nil
	case "sqlite":
		return OpenSQLite(config.GetString(cfg, "SQLITE_PATH", "memevote.db?_fk=1"), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}
}

// PostgresDSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* keys.
func PostgresDSN(cfg map[string]string) string {
	if url := config.GetString(cfg, "DATABASE_URL", ""); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		config.GetString(cfg, "DB_HOST", "localhost"),
		config.GetString(cfg, "DB_USER", "postgres"),
		config.GetString(cfg, "DB_PASSWORD", ""),
		config.GetString(cfg, "DB_NAME", "memevote"),
		config.GetString(cfg, "DB_PORT", "5432"),
		config.GetString(cfg, "DB_SSLMODE", "disable"),
	)
}

// OpenSQLite opens a SQLite database on a single connection. SQLite serialises writers
// anyway, and a single connection keeps shared-cache in-memory databases alive.
func OpenSQLite(dsn string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{TranslateError: true}
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return db, nil
}

func registerReplicas(db *gorm.DB, dsns []string) error {
	if len(dsns) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, 0, len(dsns))
	for _, dsn := range dsns {
		replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
	}

	err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas:          replicas,
		Policy:            dbresolver.RandomPolicy{},
		TraceResolverMode: true,
	}))
	if err != nil {
		return fmt.Errorf("error registering read replicas: %w", err)
	}
	return nil
}
