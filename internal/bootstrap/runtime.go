// Package bootstrap wires the database, cache and required rows together
// before a command or the server starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flatpages/internal/cache"
	"flatpages/internal/config"
	"flatpages/internal/database"
	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OwnerUsername names the placeholder account that owns pages saved without
// an explicit owner.
const OwnerUsername = "nobody"

// Options control runtime initialization behavior.
type Options struct {
	// Migrate forces schema migration. Outside production it always runs.
	Migrate bool
	// SkipRedis leaves the cache disabled, for one-shot commands.
	SkipRedis bool
}

// InitRuntime connects to DB and Redis and makes sure the rows every
// request depends on exist.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	var r *redis.Client
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		r = cache.GetClient()
	}

	if opts.Migrate || !cfg.IsProduction() {
		if err := database.Migrate(db); err != nil {
			return nil, nil, err
		}
	}

	if err := Prepare(context.Background(), cfg, db); err != nil {
		return nil, nil, err
	}
	return db, r, nil
}

// Prepare ensures the current site, the default owner and, in development,
// the root admin exist. It is safe to run on every start.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if _, err := repository.NewSiteRepository(db).EnsureDefault(ctx, cfg.SiteID, cfg.SiteDomain); err != nil {
		return fmt.Errorf("ensure site %d: %w", cfg.SiteID, err)
	}
	if err := ensureDefaultOwner(ctx, cfg, db); err != nil {
		return fmt.Errorf("ensure default owner: %w", err)
	}
	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}
	return resetSequences(db)
}

// ensureDefaultOwner creates the inactive placeholder user pages fall back to.
// It can never sign in: "!" is not a bcrypt hash.
func ensureDefaultOwner(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	var owner models.User
	err := db.WithContext(ctx).First(&owner, cfg.DefaultOwnerID).Error
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	owner = models.User{
		ID:       cfg.DefaultOwnerID,
		Username: OwnerUsername,
		Email:    OwnerUsername + "@" + cfg.SiteDomain,
		Password: "!",
	}
	if err := db.WithContext(ctx).Create(&owner).Error; err != nil {
		return err
	}
	// GORM skips zero-valued fields with defaults on insert.
	return db.WithContext(ctx).Model(&owner).Update("is_active", false).Error
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "admin@" + cfg.SiteDomain
	}
	password := cfg.DevRootPassword
	if password == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsStaff:  true,
				IsActive: true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&root).Updates(map[string]any{"is_staff": true, "is_active": true}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", "username", username)
	return nil
}

// resetSequences moves PostgreSQL sequences past rows inserted with
// explicit IDs (the default site and owner).
func resetSequences(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range []string{"users", "sites"} {
		err := db.Exec(fmt.Sprintf(`
			SELECT setval(
				pg_get_serial_sequence('%[1]s', 'id'),
				GREATEST((SELECT COALESCE(MAX(id), 1) FROM %[1]s), 1),
				true
			)`, table)).Error
		if err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}
