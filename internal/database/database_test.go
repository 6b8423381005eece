package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
)

func TestNewDatabase_SQLiteSeed(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, SeedDefaultStages(db))
	require.NoError(t, SeedDefaultStages(db))

	var stages []domain.PipelineStage
	require.NoError(t, db.Order("sort_order ASC").Find(&stages).Error)
	require.Len(t, stages, 4)
	assert.Equal(t, "NOVO", stages[0].Slug)
	assert.Equal(t, domain.StageTypeLost, stages[3].Type)
}

func TestDialector_UnknownDriver(t *testing.T) {
	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestHealthCheckWithStats(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)

	stats, err := HealthCheckWithStats(db)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, HealthCheck(db))
}
