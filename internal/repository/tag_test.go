package repository

import (
	"context"
	"testing"

	"flatpages/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "release-notes", Slugify("Release Notes"))
	assert.Equal(t, "c-go", Slugify("  C++ / Go "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestTagRepository_GetOrCreate(t *testing.T) {
	db := setupSQLite(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, []string{"news", "Events", "news", " "})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Events", first[0].Name)
	assert.Equal(t, "events", first[0].Slug)

	second, err := repo.GetOrCreate(ctx, []string{"news"})
	require.NoError(t, err)
	assert.Equal(t, first[1].ID, second[0].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.GetOrCreate(ctx, []string{"EVENTS"})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestSiteRepository(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	site, err := repo.EnsureDefault(ctx, 1, "example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(1), site.ID)
	assert.Equal(t, "example.com", site.Domain)

	again, err := repo.EnsureDefault(ctx, 1, "ignored.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", again.Domain)

	_, err = repo.GetByID(ctx, 2)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.GetByIDs(ctx, []uint{1, 2})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	sites, err := repo.GetByIDs(ctx, []uint{1})
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}

func TestUserRepository(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "editor", Email: "editor@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	dup := &models.User{Username: "editor", Email: "other@example.com", Password: "hash"}
	assert.True(t, models.IsCode(repo.Create(ctx, dup), models.CodeConflict))

	got, err := repo.GetByUsername(ctx, "editor")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsStaff)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.SetStaff(ctx, user.ID, true))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)

	assert.True(t, models.IsCode(repo.SetStaff(ctx, 404, true), models.CodeNotFound))

	users, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
