package repository

import (
	"context"
	"errors"
	"time"

	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/observability"
	"flatpages/internal/query"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageRepository defines persistence operations for pages.
type PageRepository interface {
	Create(ctx context.Context, page *models.Page) error
	Update(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Page, error)
	GetByURL(ctx context.Context, siteID uint, url string) (*models.Page, error)
	FindByURLs(ctx context.Context, siteID uint, urls []string) ([]models.Page, error)
	URLTaken(ctx context.Context, url string, siteIDs []uint, excludeID uint) (bool, error)
	Query(ctx context.Context, opts query.Options) ([]models.Page, error)
	IncrementViews(ctx context.Context, id uint) error
	List(ctx context.Context, filter AdminFilter) ([]models.Page, int64, error)
}

// AdminFilter narrows the administrative page listing. Nil pointers and
// zero values leave a field unfiltered.
type AdminFilter struct {
	Search               string
	Status               models.Status
	SiteID               uint
	EnableComments       *bool
	RegistrationRequired *bool
	Limit                int
	Offset               int
}

type pageRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPageRepository returns a new PageRepository implementation.
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db, log: observability.NewRepoLogger("pages", middleware.Logger)}
}

func (r *pageRepository) Create(ctx context.Context, page *models.Page) error {
	if err := r.db.WithContext(ctx).Omit("Owner").Create(page).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("page already exists", err)
		}
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": page.ID, "url": page.URL})
	return nil
}

// pageColumns are the columns an edit may change. Views and created_at are
// never written here.
var pageColumns = []string{
	"url", "title", "name", "content", "owner_id", "status",
	"enable_comments", "template_name", "registration_required", "updated_at",
}

func (r *pageRepository) Update(ctx context.Context, page *models.Page) error {
	page.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(page).Select(pageColumns).Updates(page)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Page", page.ID)
		}
		if err := tx.Model(page).Association("Tags").Replace(page.Tags); err != nil {
			return err
		}
		return tx.Model(page).Association("Sites").Replace(page.Sites)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		if isUniqueConstraintError(err) {
			return models.NewConflictError("page already exists", err)
		}
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": page.ID, "url": page.URL})
	return nil
}

func (r *pageRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Select(clause.Associations).Delete(&models.Page{ID: id})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Page", id)
	}
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

func (r *pageRepository) GetByID(ctx context.Context, id uint) (*models.Page, error) {
	var page models.Page
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Tags").
		Preload("Sites").
		First(&page, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Page", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &page, nil
}

func (r *pageRepository) GetByURL(ctx context.Context, siteID uint, url string) (*models.Page, error) {
	var page models.Page
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("Sites").
		Where("pages.url = ?", url).
		Where("pages.id IN (?)", siteScope(r.db, siteID)).
		Order("pages.id ASC").
		First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Page", url)
		}
		return nil, models.NewInternalError(err)
	}
	return &page, nil
}

func (r *pageRepository) FindByURLs(ctx context.Context, siteID uint, urls []string) ([]models.Page, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	var pages []models.Page
	err := r.db.WithContext(ctx).
		Where("pages.url IN ?", urls).
		Where("pages.id IN (?)", siteScope(r.db, siteID)).
		Order("pages.id ASC").
		Find(&pages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pages, nil
}

// URLTaken reports whether another page already serves url on any of siteIDs.
func (r *pageRepository) URLTaken(ctx context.Context, url string, siteIDs []uint, excludeID uint) (bool, error) {
	if len(siteIDs) == 0 {
		return false, nil
	}
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.Page{}).
		Where("pages.url = ?", url).
		Where("pages.id IN (?)", r.db.Session(&gorm.Session{NewDB: true}).
			Table("page_sites").
			Select("page_id").
			Where("site_id IN ?", siteIDs))
	if excludeID != 0 {
		q = q.Where("pages.id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *pageRepository) Query(ctx context.Context, opts query.Options) ([]models.Page, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "PageRepository", "Query",
		attribute.String("sort", opts.Sort.String()),
		attribute.Int("limit", opts.Limit),
	)
	defer span.End()
	defer observability.TrackQuery(opts.Sort.String())()

	var pages []models.Page
	if err := query.Apply(r.db.WithContext(ctx), opts).Preload("Tags").Find(&pages).Error; err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	return pages, nil
}

// IncrementViews bumps the counter in place so concurrent viewers never
// overwrite each other. The modification time is left alone.
func (r *pageRepository) IncrementViews(ctx context.Context, id uint) error {
	ctx, span := observability.StartSpan(ctx, "PageRepository", "IncrementViews", attribute.Int("page.id", int(id)))
	defer span.End()

	res := r.db.WithContext(ctx).
		Model(&models.Page{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		span.SetError(res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Page", id)
	}
	r.log.LogIncrement(ctx, map[string]any{"id": id, "column": "views"})
	return nil
}

func (r *pageRepository) List(ctx context.Context, filter AdminFilter) ([]models.Page, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Page{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		owners := r.db.Session(&gorm.Session{NewDB: true}).
			Model(&models.User{}).
			Select("id").
			Where("LOWER(username) LIKE ? ESCAPE '\\'", pattern)
		q = q.Where(
			r.db.Session(&gorm.Session{NewDB: true}).
				Where("LOWER(pages.url) LIKE ? ESCAPE '\\'", pattern).
				Or("LOWER(pages.title) LIKE ? ESCAPE '\\'", pattern).
				Or("LOWER(pages.name) LIKE ? ESCAPE '\\'", pattern).
				Or("pages.owner_id IN (?)", owners),
		)
	}
	if filter.Status != "" {
		q = q.Where("pages.status = ?", filter.Status)
	}
	if filter.SiteID != 0 {
		q = q.Where("pages.id IN (?)", siteScope(r.db, filter.SiteID))
	}
	if filter.EnableComments != nil {
		q = q.Where("pages.enable_comments = ?", *filter.EnableComments)
	}
	if filter.RegistrationRequired != nil {
		q = q.Where("pages.registration_required = ?", *filter.RegistrationRequired)
	}

	// The filtered statement is shared by the count and the page fetch.
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var pages []models.Page
	err := q.Preload("Owner").
		Preload("Tags").
		Preload("Sites").
		Order("pages.url ASC").
		Order("pages.id ASC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&pages).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return pages, total, nil
}
