package database

import (
	"context"
	"testing"

	"lookup/internal/config"
	"lookup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		DBDriver:       config.DriverSQLite,
		DBName:         ":memory:",
		DBMaxOpenConns: 1,
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		cfg      *config.Config
		expected int
	}{
		{"defaults to ten", &config.Config{}, 10},
		{"explicit", &config.Config{DBMaxOpenConns: 4, DBMaxIdleConns: 2, DBConnMaxLifetimeMinutes: 15}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, configurePool(db, tt.cfg))
			sqlDB, err := db.DB()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sqlDB.Stats().MaxOpenConnections)
		})
	}
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{config.DriverMySQL, config.DriverPostgres, config.DriverSQLite} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBHost: "localhost", DBPort: "5432", DBName: "lookup"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestConnectAndMigrate(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db))
	for _, model := range []any{&models.User{}, &models.Feed{}, &models.Post{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestClose(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)

	require.NoError(t, Close(db))
	assert.Error(t, Ping(context.Background(), db))
}
