package bootstrap

import (
	"context"
	"testing"

	"flatpages/internal/config"
	"flatpages/internal/database"
	"flatpages/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func baseConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		SiteID:         3,
		SiteDomain:     "docs.example.com",
		DefaultOwnerID: 1,
	}
}

func TestPrepare_CreatesSiteAndOwner(t *testing.T) {
	db := setupDB(t)
	cfg := baseConfig()

	require.NoError(t, Prepare(context.Background(), cfg, db))
	require.NoError(t, Prepare(context.Background(), cfg, db))

	var sites []models.Site
	require.NoError(t, db.Find(&sites).Error)
	require.Len(t, sites, 1)
	assert.Equal(t, uint(3), sites[0].ID)
	assert.Equal(t, "docs.example.com", sites[0].Domain)

	var owner models.User
	require.NoError(t, db.First(&owner, 1).Error)
	assert.Equal(t, OwnerUsername, owner.Username)
	assert.False(t, owner.IsActive)
	assert.False(t, owner.IsStaff)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPrepare_KeepsExistingOwner(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&models.User{ID: 1, Username: "alice", Email: "a@example.com", Password: "x", IsActive: true}).Error)

	require.NoError(t, Prepare(context.Background(), baseConfig(), db))

	var owner models.User
	require.NoError(t, db.First(&owner, 1).Error)
	assert.Equal(t, "alice", owner.Username)
	assert.True(t, owner.IsActive)
}

func TestEnsureDevRootAdmin(t *testing.T) {
	t.Run("skipped outside development", func(t *testing.T) {
		db := setupDB(t)
		cfg := baseConfig()
		cfg.DevBootstrapRoot = true
		require.NoError(t, ensureDevRootAdmin(context.Background(), cfg, db))

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("password required", func(t *testing.T) {
		db := setupDB(t)
		cfg := baseConfig()
		cfg.Env = "development"
		cfg.DevBootstrapRoot = true
		err := ensureDevRootAdmin(context.Background(), cfg, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DEV_ROOT_PASSWORD")
	})

	t.Run("creates then promotes", func(t *testing.T) {
		db := setupDB(t)
		cfg := baseConfig()
		cfg.Env = "development"
		cfg.DevBootstrapRoot = true
		cfg.DevRootUsername = "root"
		cfg.DevRootPassword = "dev-password-1"

		require.NoError(t, ensureDevRootAdmin(context.Background(), cfg, db))

		var root models.User
		require.NoError(t, db.Where("username = ?", "root").First(&root).Error)
		assert.True(t, root.IsStaff)
		assert.Equal(t, "admin@docs.example.com", root.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("dev-password-1")))

		require.NoError(t, db.Model(&root).Update("is_staff", false).Error)
		require.NoError(t, ensureDevRootAdmin(context.Background(), cfg, db))
		require.NoError(t, db.First(&root, root.ID).Error)
		assert.True(t, root.IsStaff)
	})
}
