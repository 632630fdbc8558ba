package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func TestNewDatabase_Migrates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, model := range Models {
		assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.Equal(t, config.DriverSQLite, db.Driver)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% pure\_fun`, EscapeLike("100% pure_fun"))
}

func TestTranslateError_DuplicateKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.DB.Create(&entities.User{Email: "reader@example.com"}).Error)
	err := db.DB.Create(&entities.User{Email: "reader@example.com"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
