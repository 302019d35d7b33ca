package repository

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"flatpages/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	GetOrCreate(ctx context.Context, names []string) ([]models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses every run of other characters into a hyphen.
func Slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// GetOrCreate returns a tag for each distinct name, creating missing ones.
// The result is sorted by name.
func (r *tagRepository) GetOrCreate(ctx context.Context, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool, len(names))
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		slug := Slugify(name)
		if slug == "" {
			slug = name
		}
		tag := models.Tag{Name: name}
		err := r.db.WithContext(ctx).
			Where(models.Tag{Name: name}).
			Attrs(models.Tag{Slug: slug}).
			FirstOrCreate(&tag).Error
		if err != nil {
			if isUniqueConstraintError(err) {
				return nil, models.NewConflictError("tag slug already used: "+slug, err)
			}
			return nil, models.NewInternalError(err)
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}
