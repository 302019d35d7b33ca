package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"flatpages/internal/models"
	"flatpages/internal/query"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRepository_IncrementViews_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPageRepository(db)
	ctx := context.Background()

	t.Run("Single In-Place Update", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "pages" SET "views"=views + 1 WHERE id = $1`)).
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.IncrementViews(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Page", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "pages" SET "views"=views + 1 WHERE id = $1`)).
			WithArgs(99).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.IncrementViews(ctx, 99)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPageRepository_GetByURL_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pages" WHERE pages.url = $1 AND pages.id IN (SELECT page_id FROM "page_sites" WHERE site_id = $2)`)).
		WithArgs("/missing/", 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByURL(context.Background(), 1, "/missing/")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageRepository_CRUD(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPageRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()
	site, other := seedSites(t, db)

	company, err := tags.GetOrCreate(ctx, []string{"company", "info"})
	require.NoError(t, err)

	page := &models.Page{
		URL:     "/about/",
		Title:   "About",
		Content: "<p>hello</p>",
		OwnerID: 1,
		Tags:    company,
		Sites:   []models.Site{site},
	}
	require.NoError(t, repo.Create(ctx, page))
	require.NotZero(t, page.ID)

	got, err := repo.GetByURL(ctx, site.ID, "/about/")
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
	assert.ElementsMatch(t, []string{"company", "info"}, got.TagNames())

	_, err = repo.GetByURL(ctx, other.ID, "/about/")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	got.Title = "About us"
	got.Status = models.StatusPublished
	got.Tags = company[:1]
	got.Sites = []models.Site{site, other}
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "About us", reloaded.Title)
	assert.True(t, reloaded.IsPublished())
	assert.Equal(t, []string{"company"}, reloaded.TagNames())
	assert.True(t, reloaded.HasSite(other.ID))
	assert.Zero(t, reloaded.Views)

	err = repo.Update(ctx, &models.Page{ID: 999, URL: "/x/", Title: "x"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	require.NoError(t, repo.Delete(ctx, page.ID))
	_, err = repo.GetByID(ctx, page.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.True(t, models.IsCode(repo.Delete(ctx, page.ID), models.CodeNotFound))

	var links int64
	require.NoError(t, db.Table("page_tags").Where("page_id = ?", page.ID).Count(&links).Error)
	assert.Zero(t, links)
}

func TestPageRepository_FindByURLsAndURLTaken(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPageRepository(db)
	ctx := context.Background()
	site, other := seedSites(t, db)

	for _, url := range []string{"/docs/", "/docs/guide/"} {
		require.NoError(t, repo.Create(ctx, &models.Page{URL: url, Title: url, OwnerID: 1, Sites: []models.Site{site}}))
	}
	require.NoError(t, repo.Create(ctx, &models.Page{URL: "/docs/guide/setup/", Title: "x", OwnerID: 1, Sites: []models.Site{other}}))

	pages, err := repo.FindByURLs(ctx, site.ID, []string{"/docs/", "/docs/guide/", "/docs/guide/setup/"})
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	pages, err = repo.FindByURLs(ctx, site.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, pages)

	taken, err := repo.URLTaken(ctx, "/docs/", []uint{site.ID}, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.URLTaken(ctx, "/docs/", []uint{other.ID}, 0)
	require.NoError(t, err)
	assert.False(t, taken)

	existing, err := repo.GetByURL(ctx, site.ID, "/docs/")
	require.NoError(t, err)
	taken, err = repo.URLTaken(ctx, "/docs/", []uint{site.ID}, existing.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestPageRepository_IncrementViews_Concurrent(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPageRepository(db)
	ctx := context.Background()
	site, _ := seedSites(t, db)

	page := &models.Page{URL: "/busy/", Title: "Busy", OwnerID: 1, Sites: []models.Site{site}}
	require.NoError(t, repo.Create(ctx, page))
	before := page.UpdatedAt

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.IncrementViews(ctx, page.ID)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Views)
	assert.True(t, got.UpdatedAt.Equal(before), "view counting must not touch the modification time")
}

func TestPageRepository_Query(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPageRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()
	site, _ := seedSites(t, db)

	foo, err := tags.GetOrCreate(ctx, []string{"foo"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &models.Page{URL: "/a/", Title: "a", OwnerID: 1, Tags: foo, Sites: []models.Site{site}}))
	require.NoError(t, repo.Create(ctx, &models.Page{URL: "/b/", Title: "b", OwnerID: 1, Sites: []models.Site{site}}))

	pages, err := repo.Query(ctx, query.Options{SiteID: site.ID, Tags: []string{"foo"}})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "/a/", pages[0].URL)
	assert.Equal(t, []string{"foo"}, pages[0].TagNames())

	_, err = repo.Query(ctx, query.Options{Limit: -1})
	assert.True(t, models.IsCode(err, models.CodeInvalidArgument))
}

func TestPageRepository_List(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPageRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()
	site, other := seedSites(t, db)

	alice := &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, users.Create(ctx, alice))

	create := func(p models.Page) {
		t.Helper()
		if p.OwnerID == 0 {
			p.OwnerID = 1
		}
		if p.Sites == nil {
			p.Sites = []models.Site{site}
		}
		require.NoError(t, repo.Create(ctx, &p))
	}
	create(models.Page{URL: "/about/", Title: "About", Status: models.StatusPublished})
	create(models.Page{URL: "/contact/", Title: "Contact 100%", EnableComments: true})
	create(models.Page{URL: "/members/", Title: "Members", RegistrationRequired: true, OwnerID: alice.ID})
	create(models.Page{URL: "/other/", Title: "Other", Sites: []models.Site{other}})

	yes := true

	tests := []struct {
		name   string
		filter AdminFilter
		want   []string
	}{
		{"All", AdminFilter{}, []string{"/about/", "/contact/", "/members/", "/other/"}},
		{"Search Title", AdminFilter{Search: "CONTACT"}, []string{"/contact/"}},
		{"Search Escapes Wildcards", AdminFilter{Search: "100%"}, []string{"/contact/"}},
		{"Search Owner", AdminFilter{Search: "ali"}, []string{"/members/"}},
		{"Status", AdminFilter{Status: models.StatusDraft}, []string{"/contact/", "/members/", "/other/"}},
		{"Site", AdminFilter{SiteID: other.ID}, []string{"/other/"}},
		{"Comments", AdminFilter{EnableComments: &yes}, []string{"/contact/"}},
		{"Registration", AdminFilter{RegistrationRequired: &yes}, []string{"/members/"}},
		{"Paged", AdminFilter{Limit: 2, Offset: 1}, []string{"/contact/", "/members/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, p := range pages {
				got = append(got, p.URL)
			}
			assert.Equal(t, tt.want, got)
			if tt.filter.Limit == 0 {
				assert.Equal(t, int64(len(tt.want)), total)
			} else {
				assert.Equal(t, int64(4), total)
			}
		})
	}
}
