// Package server contains the HTTP handlers for page lookup, the public
// listing API and the page administration API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flatpages/internal/breadcrumb"
	"flatpages/internal/cache"
	"flatpages/internal/config"
	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/render"
	"flatpages/internal/repository"
	"flatpages/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	renderer       *render.Renderer
	pageRepo       repository.PageRepository
	userRepo       repository.UserRepository
	pageService    *service.PageService
	adminService   *service.AdminService
	authService    *service.AuthService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, which disables caching and rate limiting.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	renderer, err := render.New(cfg.TemplateDir, cfg.DefaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	middleware.InitMiddleware(cfg)

	pageRepo := repository.NewPageRepository(db)
	userRepo := repository.NewUserRepository(db)

	var ttl time.Duration
	if redisClient != nil {
		ttl = cfg.CacheTTL()
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("flatpages"),
		renderer:       renderer,
		pageRepo:       pageRepo,
		userRepo:       userRepo,
	}
	server.pageService = service.NewPageService(pageRepo, breadcrumb.NewBuilder(pageRepo, ttl), service.PageSettings{
		SiteID:             cfg.SiteID,
		AppendSlash:        cfg.AppendSlash,
		LoginURL:           cfg.LoginURL,
		LoginRedirectField: cfg.LoginRedirectField,
	})
	server.adminService = service.NewAdminService(
		pageRepo,
		repository.NewTagRepository(db),
		repository.NewSiteRepository(db),
		userRepo,
		service.AdminSettings{
			SiteID:         cfg.SiteID,
			DefaultOwnerID: cfg.DefaultOwnerID,
			AppendSlash:    cfg.AppendSlash,
		},
	)
	server.authService = service.NewAuthService(userRepo, cfg.JWTSecret)
	return server, nil
}

// errorHandler answers errors that escaped a handler. Page routes render
// their own 404s; everything else gets the JSON error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
	}
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "flatpages",
		ErrorHandler: errorHandler,
		BodyLimit:    2 * 1024 * 1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry its headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(etag.New())

	app.Use(middleware.IdentifyViewer)
	// Second pass picks up the viewer's user ID for downstream logging.
	app.Use(middleware.ContextMiddleware())
}

// SetupRoutes configures all routes for the application. The page catch-all
// is registered last so every other route wins.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	auth := app.Group("/auth")
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/me", middleware.AuthRequired, s.Me)

	api := app.Group("/api")
	api.Get("/pages", middleware.RateLimit(s.redis, 60, time.Minute, "page_query"), s.QueryPages)

	admin := app.Group("/admin/api", middleware.StaffRequired)
	pages := admin.Group("/pages")
	pages.Get("/meta", s.GetAdminMeta)
	pages.Get("/", s.ListAdminPages)
	pages.Post("/", s.CreatePage)
	// Specific /:id/:resource routes before the generic /:id ones.
	pages.Get("/:id/markdown", s.ExportPage)
	pages.Get("/:id", s.GetPage)
	pages.Put("/:id", s.UpdatePage)
	pages.Delete("/:id", s.DeletePage)
	admin.Get("/users", s.ListUsers)

	app.Get("/*", s.ServePage)
}

// Start listens on the configured port until the app is shut down.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
		cache.SetClient(nil)
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and cache health. The cache is optional,
// so only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
