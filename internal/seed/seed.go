// Package seed loads page fixtures and generates demo content for
// development databases.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/repository"
	"flatpages/internal/service"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture describes one page to seed. Owner is a username.
type Fixture struct {
	URL                  string   `yaml:"url"`
	Title                string   `yaml:"title"`
	Name                 string   `yaml:"name"`
	Status               string   `yaml:"status"`
	Owner                string   `yaml:"owner"`
	Tags                 []string `yaml:"tags"`
	Views                int64    `yaml:"views"`
	TemplateName         string   `yaml:"template"`
	EnableComments       bool     `yaml:"enable_comments"`
	RegistrationRequired bool     `yaml:"registration_required"`
	Content              string   `yaml:"content"`
}

// FixtureSet is the document root of a fixtures file.
type FixtureSet struct {
	Pages []Fixture `yaml:"pages"`
}

// LoadFixtures decodes a fixtures document. Unknown keys are rejected.
func LoadFixtures(r io.Reader) (FixtureSet, error) {
	var set FixtureSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		if err == io.EOF {
			return set, nil
		}
		return FixtureSet{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return set, nil
}

// LoadFixturesFile reads fixtures from path.
func LoadFixturesFile(path string) (FixtureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return FixtureSet{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
}

// Seeder writes fixtures through the admin service so seeded pages get the
// same defaults and checks as edited ones.
type Seeder struct {
	db    *gorm.DB
	admin *service.AdminService
	users repository.UserRepository
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, admin *service.AdminService, users repository.UserRepository) *Seeder {
	return &Seeder{db: db, admin: admin, users: users}
}

// Apply creates every fixture whose URL is still free. Pages that already
// exist are skipped, so a fixture file can be applied repeatedly.
func (s *Seeder) Apply(ctx context.Context, set FixtureSet) (Result, error) {
	var res Result
	owners := map[string]uint{}

	for i, fx := range set.Pages {
		in := service.PageInput{
			URL:                  fx.URL,
			Title:                fx.Title,
			Name:                 fx.Name,
			Status:               fx.Status,
			Content:              fx.Content,
			Tags:                 strings.Join(fx.Tags, ","),
			TemplateName:         fx.TemplateName,
			EnableComments:       fx.EnableComments,
			RegistrationRequired: fx.RegistrationRequired,
		}
		if fx.Owner != "" {
			id, ok := owners[fx.Owner]
			if !ok {
				user, err := s.users.GetByUsername(ctx, fx.Owner)
				if err != nil {
					return res, fmt.Errorf("fixture %d (%s): owner %q: %w", i, fx.URL, fx.Owner, err)
				}
				id = user.ID
				owners[fx.Owner] = id
			}
			in.OwnerID = id
		}

		page, err := s.admin.CreatePage(ctx, in)
		if models.IsCode(err, models.CodeConflict) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("fixture %d (%s): %w", i, fx.URL, err)
		}
		res.Created++

		if fx.Views > 0 {
			err := s.db.WithContext(ctx).Model(&models.Page{}).
				Where("id = ?", page.ID).
				UpdateColumn("views", fx.Views).Error
			if err != nil {
				return res, fmt.Errorf("fixture %d (%s): set views: %w", i, fx.URL, err)
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "fixtures applied",
		"created", res.Created, "skipped", res.Skipped)
	return res, nil
}

// Demo seeds n generated pages.
func (s *Seeder) Demo(ctx context.Context, n int, seed int64) (Result, error) {
	return s.Apply(ctx, FixtureSet{Pages: NewFactory(seed).Tree(n)})
}

// ClearAll removes every page and tag. Users and sites are kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"page_tags", "page_sites", "pages", "tags"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
