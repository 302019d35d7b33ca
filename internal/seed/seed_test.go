package seed

import (
	"context"
	"strings"
	"testing"

	"flatpages/internal/database"
	"flatpages/internal/models"
	"flatpages/internal/repository"
	"flatpages/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const fixturesYAML = `
pages:
  - url: /about/
    title: About
    name: About
    status: published
    owner: editor
    tags: [company, info]
    views: 12
    content: |
      <p>Who we are.</p>
  - url: about/team
    title: Team
    status: p
    registration_required: true
  - url: /drafts/plan/
    title: Plan
`

func setupSeeder(t *testing.T) (*Seeder, *gorm.DB) {
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

	require.NoError(t, db.Create(&models.User{ID: 1, Username: "nobody", Email: "nobody@example.com", Password: "!"}).Error)
	require.NoError(t, db.Create(&models.User{ID: 2, Username: "editor", Email: "editor@example.com", Password: "!"}).Error)
	require.NoError(t, db.Create(&models.Site{ID: 1, Domain: "example.com", Name: "example"}).Error)

	users := repository.NewUserRepository(db)
	admin := service.NewAdminService(
		repository.NewPageRepository(db),
		repository.NewTagRepository(db),
		repository.NewSiteRepository(db),
		users,
		service.AdminSettings{SiteID: 1, DefaultOwnerID: 1, AppendSlash: true},
	)
	return NewSeeder(db, admin, users), db
}

func TestLoadFixtures(t *testing.T) {
	set, err := LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)
	require.Len(t, set.Pages, 3)
	assert.Equal(t, []string{"company", "info"}, set.Pages[0].Tags)
	assert.Equal(t, int64(12), set.Pages[0].Views)
	assert.True(t, set.Pages[1].RegistrationRequired)

	empty, err := LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Pages)

	_, err = LoadFixtures(strings.NewReader("pages:\n  - url: /x/\n    colour: red\n"))
	assert.Error(t, err)
}

func TestSeeder_Apply(t *testing.T) {
	s, db := setupSeeder(t)
	ctx := context.Background()
	set, err := LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)

	res, err := s.Apply(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 3}, res)

	var about models.Page
	require.NoError(t, db.Preload("Tags").Where("url = ?", "/about/").First(&about).Error)
	assert.Equal(t, uint(2), about.OwnerID)
	assert.Equal(t, int64(12), about.Views)
	assert.Equal(t, models.StatusPublished, about.Status)
	assert.ElementsMatch(t, []string{"company", "info"}, about.TagNames())

	var plan models.Page
	require.NoError(t, db.Where("url = ?", "/drafts/plan/").First(&plan).Error)
	assert.Equal(t, models.StatusDraft, plan.Status)
	assert.Equal(t, uint(1), plan.OwnerID)

	again, err := s.Apply(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 3}, again)
}

func TestSeeder_UnknownOwner(t *testing.T) {
	s, _ := setupSeeder(t)

	_, err := s.Apply(context.Background(), FixtureSet{Pages: []Fixture{{URL: "/x/", Title: "X", Owner: "ghost"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestSeeder_DemoAndClear(t *testing.T) {
	s, db := setupSeeder(t)
	ctx := context.Background()

	res, err := s.Demo(ctx, 15, 42)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Created+res.Skipped)

	var count int64
	require.NoError(t, db.Model(&models.Page{}).Count(&count).Error)
	assert.Equal(t, int64(res.Created), count)

	require.NoError(t, s.ClearAll(ctx))
	require.NoError(t, db.Model(&models.Page{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestFactory_Tree(t *testing.T) {
	a := NewFactory(7).Tree(20)
	b := NewFactory(7).Tree(20)
	require.Len(t, a, 20)
	assert.Equal(t, a, b)

	urls := map[string]bool{}
	for _, fx := range a {
		assert.True(t, strings.HasPrefix(fx.URL, "/"), fx.URL)
		assert.True(t, strings.HasSuffix(fx.URL, "/"), fx.URL)
		assert.NotEmpty(t, fx.Title)
		assert.False(t, urls[fx.URL], "duplicate %s", fx.URL)
		urls[fx.URL] = true
	}
	assert.Equal(t, "/"+strings.Split(a[0].URL, "/")[1]+"/", a[0].URL)

	assert.Nil(t, NewFactory(1).Tree(0))
}
