package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := config.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := config.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := config.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := config.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := config.GetEnv("POSTGRES_NAME", "vitalink", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		// Unique-violation errors surface as gorm.ErrDuplicatedKey; the
		// pairing service maps them onto its own sentinel.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	return s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Device{},
		&types.Metric{},
		&types.Alert{},
		&types.ModelArtifact{},
	)
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
