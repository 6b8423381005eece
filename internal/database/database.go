package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the configured database. Duplicate-key errors are
// translated to gorm.ErrDuplicatedKey so callers stay driver-agnostic.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer; in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connected",
		zap.String("driver", cfg.Driver),
		zap.String("name", cfg.Name),
	)

	return db, nil
}

// Dialector picks the gorm driver for the configured backend
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.ConnectionString()), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// GormConfig is shared by the server and the test helpers
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AutoMigrate runs automatic migrations (development and tests only)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Contact{},
		&domain.PipelineStage{},
		&domain.Deal{},
		&domain.DealStageHistory{},
		&domain.User{},
		&domain.HelpdeskSyncTask{},
	)
}

// DefaultStages is the pipeline every new installation starts with
func DefaultStages() []domain.PipelineStage {
	return []domain.PipelineStage{
		{Name: "Novo", Slug: "NOVO", Color: "#3B82F6", SortOrder: 0, Type: domain.StageTypeNeutral},
		{Name: "Em Cotação", Slug: "COTACAO", Color: "#F59E0B", SortOrder: 1, Type: domain.StageTypeNeutral},
		{Name: "Ganho", Slug: "GANHO", Color: "#10B981", SortOrder: 2, Type: domain.StageTypeWon},
		{Name: "Perdido", Slug: "PERDIDO", Color: "#EF4444", SortOrder: 3, Type: domain.StageTypeLost},
	}
}

// SeedDefaultStages inserts the default pipeline when the stage table is empty
func SeedDefaultStages(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.PipelineStage{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count pipeline stages: %w", err)
	}
	if count > 0 {
		return nil
	}

	stages := DefaultStages()
	if err := db.Create(&stages).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to seed pipeline stages: %w", err)
	}
	return nil
}

// HealthCheck pings the database with a short timeout
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// HealthCheckWithStats pings the database and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	if err := HealthCheck(db); err != nil {
		return sql.DBStats{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}
