package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weathertogether.app/config"
	"weathertogether.app/models"
)

func TestInitDB_Sqlite(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	require.NoError(t, RunMigrations(db))

	assert.True(t, db.Migrator().HasTable(&models.Subscription{}))
	assert.True(t, db.Migrator().HasIndex(&models.Subscription{}, "idx_email_postal"))

	assert.NoError(t, CloseDB(db))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := InitDB(cfg)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db))
	require.NoError(t, RunMigrations(db))

	assert.NoError(t, CloseDB(db))
}
