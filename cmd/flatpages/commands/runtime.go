package commands

import (
	"flatpages/internal/bootstrap"
	"flatpages/internal/breadcrumb"
	"flatpages/internal/config"
	"flatpages/internal/repository"
	"flatpages/internal/seed"
	"flatpages/internal/service"

	"gorm.io/gorm"
)

// app bundles the services a command needs.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	users  repository.UserRepository
	pages  *service.PageService
	admin  *service.AdminService
	auth   *service.AuthService
	seeder *seed.Seeder
}

func openApp(migrate bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Migrate: migrate, SkipRedis: noCache})
	if err != nil {
		return nil, err
	}

	pageRepo := repository.NewPageRepository(db)
	users := repository.NewUserRepository(db)
	admin := service.NewAdminService(
		pageRepo,
		repository.NewTagRepository(db),
		repository.NewSiteRepository(db),
		users,
		service.AdminSettings{
			SiteID:         cfg.SiteID,
			DefaultOwnerID: cfg.DefaultOwnerID,
			AppendSlash:    cfg.AppendSlash,
		},
	)

	return &app{
		cfg:   cfg,
		db:    db,
		users: users,
		pages: service.NewPageService(pageRepo, breadcrumb.NewBuilder(pageRepo, 0), service.PageSettings{
			SiteID:      cfg.SiteID,
			AppendSlash: cfg.AppendSlash,
			LoginURL:    cfg.LoginURL,
		}),
		admin:  admin,
		auth:   service.NewAuthService(users, cfg.JWTSecret),
		seeder: seed.NewSeeder(db, admin, users),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
