package repository

import (
	"context"
	"errors"

	"flatpages/internal/models"

	"gorm.io/gorm"
)

// SiteRepository defines persistence operations for sites.
type SiteRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Site, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Site, error)
	EnsureDefault(ctx context.Context, id uint, domain string) (*models.Site, error)
	List(ctx context.Context) ([]models.Site, error)
}

type siteRepository struct {
	db *gorm.DB
}

// NewSiteRepository returns a new SiteRepository implementation.
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) GetByID(ctx context.Context, id uint) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Site", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &site, nil
}

// GetByIDs loads every listed site, failing with NotFound if any is missing.
func (r *siteRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Site, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sites []models.Site
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&sites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	found := make(map[uint]bool, len(sites))
	for _, s := range sites {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, models.NewNotFoundError("Site", id)
		}
	}
	return sites, nil
}

// EnsureDefault creates the site with the given id when it does not exist yet.
func (r *siteRepository) EnsureDefault(ctx context.Context, id uint, domain string) (*models.Site, error) {
	site := models.Site{ID: id}
	err := r.db.WithContext(ctx).
		Where(models.Site{ID: id}).
		Attrs(models.Site{Domain: domain, Name: domain}).
		FirstOrCreate(&site).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.NewConflictError("site domain already used: "+domain, err)
		}
		return nil, models.NewInternalError(err)
	}
	return &site, nil
}

func (r *siteRepository) List(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&sites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sites, nil
}
